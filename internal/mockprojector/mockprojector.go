// Package mockprojector is a reference Handler implementation. It is not
// part of the core: it exists to give the server something to talk to and
// to exercise every opcode in the command algebra — same default identity
// strings, same initial state, and same mute escalation/de-escalation table
// as a real projector's firmware, re-expressed against the classified
// command.Command type instead of pattern-matching a raw request enum. Kept
// as a plain struct with no internal locking: HandleCommand is always
// called single-threaded, serialized by the server's handler.Guard.
package mockprojector

import (
	"fmt"

	"github.com/mateusmeyer/pjlink-server/internal/pjlink/command"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/response"
)

// Options configures the mock's fixed identity and capability answers.
type Options struct {
	Password                    string // empty disables authentication
	ClassType                   byte
	ManufacturerName            []byte
	ProductName                 []byte
	ProjectorName               []byte
	SerialNumber                []byte
	SoftwareVersion             []byte
	ScreenResolution            []byte
	RecommendedScreenResolution []byte
}

// DefaultOptions returns a fixed, deterministic identity suitable for tests
// and for running the reference server without any flags.
func DefaultOptions() Options {
	return Options{
		ClassType:                   '2',
		ManufacturerName:            []byte("mateusmeyer mocks"),
		ProductName:                 []byte("projector-mock"),
		ProjectorName:               []byte("projector-001"),
		SerialNumber:                []byte("faa13ebee21677a2c064fd6ce067b50e"),
		SoftwareVersion:             []byte("1.0"),
		ScreenResolution:            []byte("1920x1080"),
		RecommendedScreenResolution: []byte("1920x1080"),
	}
}

// Error status items, all "Normal" ('0') initially; see ERST encoding below.
// errorWarning and errorFailure are the other two status bytes ERST can
// report, exercised by setErrorStatus in this package's own tests.
const (
	errorNormal  = '0'
	errorWarning = '1'
	errorFailure = '2'
)

// errorStatusField selects one of ERST's six independently-settable items.
type errorStatusField int

const (
	errorStatusFan errorStatusField = iota
	errorStatusLamp
	errorStatusTemperature
	errorStatusCoverOpen
	errorStatusFilter
	errorStatusOther
)

type state struct {
	powerOn bool

	errorFan         byte
	errorLamp        byte
	errorTemperature byte
	errorCoverOpen   byte
	errorFilter      byte
	errorOther       byte

	lampHours   []byte
	filterHours []byte

	muteTarget command.MuteTarget
	muted      bool

	inputKind  command.InputKind
	inputValue byte

	freezeOn bool
}

func newState() state {
	return state{
		errorFan:         errorNormal,
		errorLamp:        errorNormal,
		errorTemperature: errorNormal,
		errorCoverOpen:   errorNormal,
		errorFilter:      errorNormal,
		errorOther:       errorNormal,
		lampHours:        []byte("120"),
		filterHours:      []byte("0"),
		muteTarget:       command.MuteTargetAudioAndVideo,
		muted:            false,
		inputKind:        command.InputKindRGB,
		inputValue:       '1',
	}
}

// availableInputs is the fixed input-toggling list reported for INST: RGB1,
// RGB2, Digital1, Storage1, each pair separated by a space.
var availableInputs = []byte("11 12 31 41")

// Projector is the mock's Handler implementation.
type Projector struct {
	opts  Options
	state state
}

// New constructs a Projector with the given identity options.
func New(opts Options) *Projector {
	return &Projector{opts: opts, state: newState()}
}

// setErrorStatus overrides one ERST field, for this package's own tests to
// drive a non-normal status byte. Not part of the Handler interface.
func (p *Projector) setErrorStatus(field errorStatusField, value byte) {
	switch field {
	case errorStatusFan:
		p.state.errorFan = value
	case errorStatusLamp:
		p.state.errorLamp = value
	case errorStatusTemperature:
		p.state.errorTemperature = value
	case errorStatusCoverOpen:
		p.state.errorCoverOpen = value
	case errorStatusFilter:
		p.state.errorFilter = value
	case errorStatusOther:
		p.state.errorOther = value
	}
}

// Password implements handler.Handler.
func (p *Projector) Password(connID uint64) (string, bool) {
	if p.opts.Password == "" {
		return "", false
	}
	return p.opts.Password, true
}

// HandleCommand implements handler.Handler.
func (p *Projector) HandleCommand(cmd command.Command, raw payload.RawPayload, connID uint64) response.Response {
	switch cmd.Opcode {
	case command.Power1:
		return p.handlePower(cmd.Power)
	case command.Input1, command.Input2:
		return p.handleInput(cmd.Input)
	case command.AvMute1:
		return p.handleMute(cmd.Mute)
	case command.ErrorStatus1:
		return response.NewMultiple([]byte{
			p.state.errorFan, p.state.errorLamp, p.state.errorTemperature,
			p.state.errorCoverOpen, p.state.errorFilter, p.state.errorOther,
		})
	case command.Lamp1:
		hours := append(append([]byte{}, p.state.lampHours...), ' ')
		if p.state.powerOn {
			hours = append(hours, '1')
		} else {
			hours = append(hours, '0')
		}
		return response.NewMultiple(hours)
	case command.InputTogglingList1, command.InputTogglingList2:
		return response.NewMultiple(append([]byte{}, availableInputs...))
	case command.Name1:
		return response.NewMultiple(p.opts.ProjectorName)
	case command.InfoManufacturer1:
		return response.NewMultiple(p.opts.ManufacturerName)
	case command.InfoProductName1:
		return response.NewMultiple(p.opts.ProductName)
	case command.InfoOther1:
		return response.NewMultiple(nil)
	case command.Class1:
		return response.NewSingle(p.opts.ClassType)
	case command.SerialNumber2:
		return response.NewMultiple(p.opts.SerialNumber)
	case command.SoftwareVersion2:
		return response.NewMultiple(p.opts.SoftwareVersion)
	case command.InputResolution2:
		return response.NewMultiple(p.opts.ScreenResolution)
	case command.RecommendResolution2:
		return response.NewMultiple(p.opts.RecommendedScreenResolution)
	case command.FilterUsageTime2:
		return response.NewMultiple(p.state.filterHours)
	case command.LampReplacementModel2, command.FilterReplacementModel2:
		return response.NewEmpty()
	case command.InputTerminalName2:
		return p.handleInputTerminalName(cmd.Input)
	case command.SpeakerVolumeAdjustment2, command.MicrophoneVolumeAdjustment2:
		if cmd.Volume == command.VolumeUnknown {
			return response.NewOutOfParameter()
		}
		return response.NewOk()
	case command.Freeze2:
		return p.handleFreeze(cmd.Freeze)
	default:
		return response.NewUndefined()
	}
}

func (p *Projector) handlePower(ps command.PowerState) response.Response {
	switch ps {
	case command.PowerQuery:
		if p.state.powerOn {
			return response.NewSingle('1')
		}
		return response.NewSingle('0')
	case command.PowerOn:
		p.state.powerOn = true
		return response.NewOk()
	case command.PowerOff:
		p.state.powerOn = false
		return response.NewOk()
	default:
		return response.NewOutOfParameter()
	}
}

func (p *Projector) handleInput(in command.InputParam) response.Response {
	if in.Query {
		return response.NewMultiple([]byte{p.state.inputKind.KindByte(), p.state.inputValue})
	}
	if in.Unknown || in.Kind == command.InputKindUnknown {
		return response.NewOutOfParameter()
	}
	p.state.inputKind = in.Kind
	p.state.inputValue = in.Value
	return response.NewOk()
}

// handleMute implements the mute escalation/de-escalation table: setting
// Audio while Video is already muted escalates to AudioAndVideo (and the
// reverse on un-mute), matching the combined-state semantics PJLink expects
// from AVMT.
func (p *Projector) handleMute(mute command.MuteParam) response.Response {
	if mute.Query {
		return response.NewMultiple([]byte{muteTargetByte(p.state.muteTarget), muteFlagByte(p.state.muted)})
	}
	if mute.Unknown {
		return response.NewOutOfParameter()
	}

	currentTarget := p.state.muteTarget
	alreadyMuted := p.state.muted

	switch mute.Target {
	case command.MuteTargetAudio:
		switch {
		case currentTarget == command.MuteTargetVideo && alreadyMuted && mute.Muted:
			p.state.muteTarget, p.state.muted = command.MuteTargetAudioAndVideo, true
		case currentTarget == command.MuteTargetAudioAndVideo && alreadyMuted && !mute.Muted:
			p.state.muteTarget, p.state.muted = command.MuteTargetVideo, true
		default:
			p.state.muteTarget, p.state.muted = currentTarget, mute.Muted
		}
	case command.MuteTargetVideo:
		switch {
		case currentTarget == command.MuteTargetAudio && alreadyMuted && mute.Muted:
			p.state.muteTarget, p.state.muted = command.MuteTargetAudioAndVideo, true
		case currentTarget == command.MuteTargetAudioAndVideo && alreadyMuted && !mute.Muted:
			p.state.muteTarget, p.state.muted = command.MuteTargetAudio, true
		default:
			p.state.muteTarget, p.state.muted = currentTarget, mute.Muted
		}
	case command.MuteTargetAudioAndVideo:
		p.state.muteTarget, p.state.muted = command.MuteTargetAudioAndVideo, mute.Muted
	default:
		return response.NewOutOfParameter()
	}
	return response.NewOk()
}

func muteTargetByte(t command.MuteTarget) byte {
	switch t {
	case command.MuteTargetAudio:
		return '1'
	case command.MuteTargetVideo:
		return '2'
	case command.MuteTargetAudioAndVideo:
		return '3'
	default:
		return '0'
	}
}

func muteFlagByte(muted bool) byte {
	if muted {
		return '1'
	}
	return '0'
}

// handleInputTerminalName synthesizes a human-readable terminal name by
// concatenating the kind's prefix with the input value digit.
func (p *Projector) handleInputTerminalName(in command.InputParam) response.Response {
	if in.Unknown || in.Kind == command.InputKindUnknown {
		return response.NewOutOfParameter()
	}
	var prefix string
	switch in.Kind {
	case command.InputKindRGB:
		prefix = "VGA"
	case command.InputKindVideo:
		prefix = "Analog"
	case command.InputKindDigital:
		prefix = "HDMI"
	case command.InputKindNetwork:
		prefix = "Network"
	case command.InputKindStorage:
		prefix = "Storage"
	case command.InputKindInternal:
		prefix = "Internal"
	}
	return response.NewMultiple([]byte(fmt.Sprintf("%s%c", prefix, in.Value)))
}

func (p *Projector) handleFreeze(fs command.FreezeState) response.Response {
	switch fs {
	case command.FreezeQuery:
		if p.state.freezeOn {
			return response.NewSingle('1')
		}
		return response.NewSingle('0')
	case command.FreezeOn:
		p.state.freezeOn = true
		return response.NewOk()
	case command.FreezeOff:
		p.state.freezeOn = false
		return response.NewOk()
	default:
		return response.NewOutOfParameter()
	}
}
