// Package command classifies a parsed payload.RawPayload into a closed
// command algebra: an Opcode discriminant plus one typed field per
// sub-parameter family, only one of which is meaningful for a given Opcode —
// the common Go idiom for a closed tagged union. The classifier is a total
// function in the same style as header parsing elsewhere in this module:
// never panic, never partially fill a result, always return a fully-formed
// value.
package command

import (
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/wire"
)

// Opcode discriminates the Command union. Zero value is Unknown so a
// zero-valued Command is never mistaken for a recognized one.
type Opcode int

const (
	Unknown Opcode = iota
	Power1
	Input1
	Input2
	AvMute1
	ErrorStatus1
	Lamp1
	InputTogglingList1
	InputTogglingList2
	Name1
	InfoManufacturer1
	InfoProductName1
	InfoOther1
	Class1
	SerialNumber2
	SoftwareVersion2
	InputResolution2
	RecommendResolution2
	FilterUsageTime2
	LampReplacementModel2
	FilterReplacementModel2
	InputTerminalName2
	SpeakerVolumeAdjustment2
	MicrophoneVolumeAdjustment2
	Freeze2
)

// String renders the opcode's variant name, e.g. "Power1", "Input2". Used
// for logging and metrics labels rather than the raw CommandBodyWithClass.
func (o Opcode) String() string {
	switch o {
	case Power1:
		return "Power1"
	case Input1:
		return "Input1"
	case Input2:
		return "Input2"
	case AvMute1:
		return "AvMute1"
	case ErrorStatus1:
		return "ErrorStatus1"
	case Lamp1:
		return "Lamp1"
	case InputTogglingList1:
		return "InputTogglingList1"
	case InputTogglingList2:
		return "InputTogglingList2"
	case Name1:
		return "Name1"
	case InfoManufacturer1:
		return "InfoManufacturer1"
	case InfoProductName1:
		return "InfoProductName1"
	case InfoOther1:
		return "InfoOther1"
	case Class1:
		return "Class1"
	case SerialNumber2:
		return "SerialNumber2"
	case SoftwareVersion2:
		return "SoftwareVersion2"
	case InputResolution2:
		return "InputResolution2"
	case RecommendResolution2:
		return "RecommendResolution2"
	case FilterUsageTime2:
		return "FilterUsageTime2"
	case LampReplacementModel2:
		return "LampReplacementModel2"
	case FilterReplacementModel2:
		return "FilterReplacementModel2"
	case InputTerminalName2:
		return "InputTerminalName2"
	case SpeakerVolumeAdjustment2:
		return "SpeakerVolumeAdjustment2"
	case MicrophoneVolumeAdjustment2:
		return "MicrophoneVolumeAdjustment2"
	case Freeze2:
		return "Freeze2"
	default:
		return "Unknown"
	}
}

// PowerState is the sub-parameter union for Power1.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerQuery
	PowerOn
	PowerOff
)

// InputKind is the shared input-kind digit decoding used by Input1/Input2
// and InputTerminalName2 (input-kind decoding).
type InputKind int

const (
	InputKindUnknown InputKind = iota
	InputKindRGB
	InputKindVideo
	InputKindDigital
	InputKindStorage
	InputKindNetwork
	InputKindInternal
)

// InputParam is the sub-parameter union for Input1/Input2/InputTerminalName2.
type InputParam struct {
	Query   bool
	Unknown bool
	Kind    InputKind
	Value   byte
}

// KindByte returns the wire digit for an InputKind, the inverse of
// decodeInputKind. Handlers that re-render an input's kind (e.g. echoing
// "%1INPT=<kind><value>") use this rather than re-deriving the mapping.
func (k InputKind) KindByte() byte {
	switch k {
	case InputKindRGB:
		return '1'
	case InputKindVideo:
		return '2'
	case InputKindDigital:
		return '3'
	case InputKindStorage:
		return '4'
	case InputKindNetwork:
		return '5'
	case InputKindInternal:
		return '6'
	default:
		return '0'
	}
}

// MuteTarget and MuteFlag form the AVMT sub-parameter union.
type MuteTarget int

const (
	MuteTargetUnknown MuteTarget = iota
	MuteTargetAudio
	MuteTargetVideo
	MuteTargetAudioAndVideo
)

type MuteParam struct {
	Query   bool
	Unknown bool
	Target  MuteTarget
	Muted   bool
}

// FreezeState is the sub-parameter union for Freeze2.
type FreezeState int

const (
	FreezeUnknown FreezeState = iota
	FreezeQuery
	FreezeOn
	FreezeOff
)

// VolumeDirection is the sub-parameter union for SVOL/MVOL.
type VolumeDirection int

const (
	VolumeUnknown VolumeDirection = iota
	VolumeIncrease
	VolumeDecrease
)

// Command is the classified, semantically-typed request. Only the field
// matching Opcode is meaningful; the rest are zero values.
type Command struct {
	Opcode Opcode
	Power  PowerState
	Input  InputParam
	Mute   MuteParam
	Freeze FreezeState
	Volume VolumeDirection
}

// queryByte is the '?' parameter byte used by the parameter grammars below.
const queryByte = wire.Query

// Classify is a total function from a parsed RawPayload to a Command: every
// input produces a value, never an error. Anything the mapping below doesn't
// recognize — including a non-ASCII command body — yields Command{Opcode:
// Unknown}.
func Classify(p payload.RawPayload) Command {
	if !isASCII(p.CommandBodyWithClass[:]) {
		return Command{Opcode: Unknown}
	}

	class := p.Class()
	opcode := p.Opcode()
	param := p.TransmissionParameter

	switch {
	case opcode == "POWR" && class == wire.ClassOne:
		return Command{Opcode: Power1, Power: classifyPower(param)}

	case opcode == "INPT" && class == wire.ClassOne:
		return Command{Opcode: Input1, Input: classifyInput(param, wire.ClassOne)}
	case opcode == "INPT" && class == wire.ClassTwo:
		return Command{Opcode: Input2, Input: classifyInput(param, wire.ClassTwo)}

	case opcode == "AVMT" && class == wire.ClassOne:
		return Command{Opcode: AvMute1, Mute: classifyMute(param)}

	case opcode == "ERST" && class == wire.ClassOne:
		return Command{Opcode: ErrorStatus1}

	case opcode == "LAMP" && class == wire.ClassOne:
		return Command{Opcode: Lamp1}

	case opcode == "INST" && class == wire.ClassOne:
		return Command{Opcode: InputTogglingList1}
	case opcode == "INST" && class == wire.ClassTwo:
		return Command{Opcode: InputTogglingList2}

	case opcode == "NAME" && class == wire.ClassOne:
		return Command{Opcode: Name1}
	case opcode == "INF1" && class == wire.ClassOne:
		return Command{Opcode: InfoManufacturer1}
	case opcode == "INF2" && class == wire.ClassOne:
		return Command{Opcode: InfoProductName1}
	case opcode == "INFO" && class == wire.ClassOne:
		return Command{Opcode: InfoOther1}
	case opcode == "CLSS" && class == wire.ClassOne:
		return Command{Opcode: Class1}

	case opcode == "SNUM" && class == wire.ClassTwo:
		return Command{Opcode: SerialNumber2}
	case opcode == "SVER" && class == wire.ClassTwo:
		return Command{Opcode: SoftwareVersion2}
	case opcode == "IRES" && class == wire.ClassTwo:
		return Command{Opcode: InputResolution2}
	case opcode == "RRES" && class == wire.ClassTwo:
		return Command{Opcode: RecommendResolution2}
	case opcode == "FILT" && class == wire.ClassTwo:
		return Command{Opcode: FilterUsageTime2}
	case opcode == "RLMP" && class == wire.ClassTwo:
		return Command{Opcode: LampReplacementModel2}
	case opcode == "RFIL" && class == wire.ClassTwo:
		return Command{Opcode: FilterReplacementModel2}

	case opcode == "INNM" && class == wire.ClassTwo:
		return Command{Opcode: InputTerminalName2, Input: classifyInputTerminalName(param)}

	case opcode == "SVOL" && class == wire.ClassTwo:
		return Command{Opcode: SpeakerVolumeAdjustment2, Volume: classifyVolume(param)}
	case opcode == "MVOL" && class == wire.ClassTwo:
		return Command{Opcode: MicrophoneVolumeAdjustment2, Volume: classifyVolume(param)}

	case opcode == "FREZ" && class == wire.ClassTwo:
		return Command{Opcode: Freeze2, Freeze: classifyFreeze(param)}
	}

	return Command{Opcode: Unknown}
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 0x7f {
			return false
		}
	}
	return true
}

func classifyPower(param []byte) PowerState {
	if len(param) != 1 {
		return PowerUnknown
	}
	switch param[0] {
	case queryByte:
		return PowerQuery
	case '1':
		return PowerOn
	case '0':
		return PowerOff
	default:
		return PowerUnknown
	}
}

func classifyInput(param []byte, class byte) InputParam {
	if len(param) == 1 && param[0] == queryByte {
		return InputParam{Query: true}
	}
	if len(param) != 2 {
		return InputParam{Unknown: true}
	}
	kind, ok := decodeInputKind(param[0], class)
	if !ok {
		return InputParam{Unknown: true}
	}
	value := param[1]
	if !isValidInputValue(value, class) {
		return InputParam{Unknown: true}
	}
	return InputParam{Kind: kind, Value: value}
}

// classifyInputTerminalName decodes INNM's three-byte query form: '?' followed
// by the two-byte (kind, value) pair for 2INNM.
func classifyInputTerminalName(param []byte) InputParam {
	if len(param) != 3 || param[0] != queryByte {
		return InputParam{Unknown: true}
	}
	kind, ok := decodeInputKind(param[1], wire.ClassTwo)
	if !ok {
		return InputParam{Unknown: true}
	}
	value := param[2]
	if !isValidInputValue(value, wire.ClassTwo) {
		return InputParam{Unknown: true}
	}
	return InputParam{Kind: kind, Value: value}
}

// decodeInputKind maps the shared kind digit: '1'->RGB, '2'->Video,
// '3'->Digital, '4'->Storage, '5'->Network, '6'->Internal. Internal is
// illegal in class 1 (open question 3: '4' is Storage, not Network).
func decodeInputKind(kindByte byte, class byte) (InputKind, bool) {
	var kind InputKind
	switch kindByte {
	case '1':
		kind = InputKindRGB
	case '2':
		kind = InputKindVideo
	case '3':
		kind = InputKindDigital
	case '4':
		kind = InputKindStorage
	case '5':
		kind = InputKindNetwork
	case '6':
		kind = InputKindInternal
	default:
		return InputKindUnknown, false
	}
	if kind == InputKindInternal && class == wire.ClassOne {
		return InputKindUnknown, false
	}
	return kind, true
}

// isValidInputValue enforces the value-byte ranges: '1'..'9' always; class
// 2 additionally accepts 'A'..'Z' but not the ':'..'@' gap between them.
func isValidInputValue(v byte, class byte) bool {
	if v >= '1' && v <= '9' {
		return true
	}
	if class == wire.ClassTwo && v >= 'A' && v <= 'Z' {
		return true
	}
	return false
}

func classifyMute(param []byte) MuteParam {
	if len(param) == 1 && param[0] == queryByte {
		return MuteParam{Query: true}
	}
	if len(param) != 2 {
		return MuteParam{Unknown: true}
	}
	var target MuteTarget
	switch param[0] {
	case '1':
		target = MuteTargetAudio
	case '2':
		target = MuteTargetVideo
	case '3':
		target = MuteTargetAudioAndVideo
	default:
		return MuteParam{Unknown: true}
	}
	switch param[1] {
	case '0':
		return MuteParam{Target: target, Muted: false}
	case '1':
		return MuteParam{Target: target, Muted: true}
	default:
		return MuteParam{Unknown: true}
	}
}

func classifyFreeze(param []byte) FreezeState {
	if len(param) != 1 {
		return FreezeUnknown
	}
	switch param[0] {
	case queryByte:
		return FreezeQuery
	case '1':
		return FreezeOn
	case '0':
		return FreezeOff
	default:
		return FreezeUnknown
	}
}

func classifyVolume(param []byte) VolumeDirection {
	if len(param) != 1 {
		return VolumeUnknown
	}
	switch param[0] {
	case '1':
		return VolumeIncrease
	case '0':
		return VolumeDecrease
	default:
		return VolumeUnknown
	}
}
