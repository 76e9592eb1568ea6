package mockprojector

import (
	"bytes"
	"testing"

	"github.com/mateusmeyer/pjlink-server/internal/pjlink/command"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/response"
)

func send(p *Projector, cmd command.Command) response.Response {
	return p.HandleCommand(cmd, payload.RawPayload{}, 1)
}

func TestPowerLifecycle(t *testing.T) {
	p := New(DefaultOptions())

	got := send(p, command.Command{Opcode: command.Power1, Power: command.PowerQuery})
	if got.Kind != response.Single || got.Byte != '0' {
		t.Fatalf("initial power query = %+v, want Single('0')", got)
	}

	got = send(p, command.Command{Opcode: command.Power1, Power: command.PowerOn})
	if got.Kind != response.Ok {
		t.Fatalf("power on = %+v, want Ok", got)
	}

	got = send(p, command.Command{Opcode: command.Power1, Power: command.PowerQuery})
	if got.Kind != response.Single || got.Byte != '1' {
		t.Fatalf("power query after on = %+v, want Single('1')", got)
	}
}

func TestPasswordDisabledByDefault(t *testing.T) {
	p := New(DefaultOptions())
	_, required := p.Password(1)
	if required {
		t.Fatalf("expected auth disabled by default")
	}
}

func TestPasswordEnabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Password = "JBMIA"
	p := New(opts)
	pass, required := p.Password(1)
	if !required || pass != "JBMIA" {
		t.Fatalf("got (%q, %v), want (%q, true)", pass, required, "JBMIA")
	}
}

func TestInputSetAndQuery(t *testing.T) {
	p := New(DefaultOptions())
	got := send(p, command.Command{Opcode: command.Input1, Input: command.InputParam{Kind: command.InputKindDigital, Value: '2'}})
	if got.Kind != response.Ok {
		t.Fatalf("input set = %+v, want Ok", got)
	}
	got = send(p, command.Command{Opcode: command.Input1, Input: command.InputParam{Query: true}})
	want := []byte{'3', '2'}
	if got.Kind != response.Multiple || !bytes.Equal(got.Bytes, want) {
		t.Fatalf("input query = %+v, want Multiple(%q)", got, want)
	}
}

// TestMuteEscalationAudioThenVideo: muting Audio then Video while both end
// up muted collapses to AudioAndVideo(Mute).
func TestMuteEscalationAudioThenVideo(t *testing.T) {
	p := New(DefaultOptions())

	got := send(p, command.Command{Opcode: command.AvMute1, Mute: command.MuteParam{Target: command.MuteTargetAudio, Muted: true}})
	if got.Kind != response.Ok {
		t.Fatalf("mute audio = %+v", got)
	}
	got = send(p, command.Command{Opcode: command.AvMute1, Mute: command.MuteParam{Target: command.MuteTargetVideo, Muted: true}})
	if got.Kind != response.Ok {
		t.Fatalf("mute video = %+v", got)
	}

	got = send(p, command.Command{Opcode: command.AvMute1, Mute: command.MuteParam{Query: true}})
	want := []byte{'3', '1'} // AudioAndVideo, Mute
	if got.Kind != response.Multiple || !bytes.Equal(got.Bytes, want) {
		t.Fatalf("mute query after escalation = %+v, want Multiple(%q)", got, want)
	}
}

// TestMuteDeEscalationFromAudioAndVideo ports the reverse rule: un-muting
// Audio while currently AudioAndVideo(Mute) de-escalates to Video(Mute).
func TestMuteDeEscalationFromAudioAndVideo(t *testing.T) {
	p := New(DefaultOptions())
	send(p, command.Command{Opcode: command.AvMute1, Mute: command.MuteParam{Target: command.MuteTargetAudioAndVideo, Muted: true}})

	got := send(p, command.Command{Opcode: command.AvMute1, Mute: command.MuteParam{Target: command.MuteTargetAudio, Muted: false}})
	if got.Kind != response.Ok {
		t.Fatalf("unmute audio = %+v", got)
	}

	got = send(p, command.Command{Opcode: command.AvMute1, Mute: command.MuteParam{Query: true}})
	want := []byte{'2', '1'} // Video, Mute
	if got.Kind != response.Multiple || !bytes.Equal(got.Bytes, want) {
		t.Fatalf("mute query after de-escalation = %+v, want Multiple(%q)", got, want)
	}
}

func TestInputTerminalNameSynthesis(t *testing.T) {
	p := New(DefaultOptions())
	got := send(p, command.Command{Opcode: command.InputTerminalName2, Input: command.InputParam{Kind: command.InputKindDigital, Value: '3'}})
	want := []byte("HDMI3")
	if got.Kind != response.Multiple || !bytes.Equal(got.Bytes, want) {
		t.Fatalf("got %+v, want Multiple(%q)", got, want)
	}
}

func TestVolumeAdjustmentFireAndForget(t *testing.T) {
	p := New(DefaultOptions())
	got := send(p, command.Command{Opcode: command.SpeakerVolumeAdjustment2, Volume: command.VolumeIncrease})
	if got.Kind != response.Ok {
		t.Fatalf("got %+v, want Ok", got)
	}
	got = send(p, command.Command{Opcode: command.MicrophoneVolumeAdjustment2, Volume: command.VolumeUnknown})
	if got.Kind != response.OutOfParameter {
		t.Fatalf("got %+v, want OutOfParameter", got)
	}
}

func TestFreezeLifecycle(t *testing.T) {
	p := New(DefaultOptions())
	got := send(p, command.Command{Opcode: command.Freeze2, Freeze: command.FreezeOn})
	if got.Kind != response.Ok {
		t.Fatalf("freeze on = %+v", got)
	}
	got = send(p, command.Command{Opcode: command.Freeze2, Freeze: command.FreezeQuery})
	if got.Kind != response.Single || got.Byte != '1' {
		t.Fatalf("freeze query = %+v, want Single('1')", got)
	}
}

func TestUnknownCommandYieldsUndefined(t *testing.T) {
	got := send(New(DefaultOptions()), command.Command{Opcode: command.Unknown})
	if got.Kind != response.Undefined {
		t.Fatalf("got %+v, want Undefined", got)
	}
}

func TestErrorStatusAllNormal(t *testing.T) {
	got := send(New(DefaultOptions()), command.Command{Opcode: command.ErrorStatus1})
	want := []byte{'0', '0', '0', '0', '0', '0'}
	if got.Kind != response.Multiple || !bytes.Equal(got.Bytes, want) {
		t.Fatalf("got %+v, want Multiple(%q)", got, want)
	}
}

func TestErrorStatusReflectsSetField(t *testing.T) {
	p := New(DefaultOptions())
	p.setErrorStatus(errorStatusLamp, errorWarning)
	p.setErrorStatus(errorStatusFilter, errorFailure)

	got := send(p, command.Command{Opcode: command.ErrorStatus1})
	want := []byte{'0', '1', '0', '0', '2', '0'}
	if got.Kind != response.Multiple || !bytes.Equal(got.Bytes, want) {
		t.Fatalf("got %+v, want Multiple(%q)", got, want)
	}
}

func TestLampQueryReflectsPowerState(t *testing.T) {
	p := New(DefaultOptions())
	got := send(p, command.Command{Opcode: command.Lamp1})
	want := []byte("120 0")
	if got.Kind != response.Multiple || !bytes.Equal(got.Bytes, want) {
		t.Fatalf("got %+v, want Multiple(%q)", got, want)
	}

	send(p, command.Command{Opcode: command.Power1, Power: command.PowerOn})
	got = send(p, command.Command{Opcode: command.Lamp1})
	want = []byte("120 1")
	if !bytes.Equal(got.Bytes, want) {
		t.Fatalf("got %+v, want Multiple(%q)", got, want)
	}
}
