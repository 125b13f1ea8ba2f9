package dht

import (
	"errors"
	"testing"

	"github.com/sweeney/weather-station/internal/gpio"
)

func newTestDevice(line gpio.Line, opts ...Option) *Device {
	return New(line, append([]Option{WithDelay(NoDelay{})}, opts...)...)
}

func frameWithChecksum(b0, b1, b2, b3 byte) Frame {
	f := Frame{b0, b1, b2, b3}
	f[4] = Checksum(f)
	return f
}

func TestReadBitComparesPhases(t *testing.T) {
	tests := []struct {
		name      string
		low, high int // measured ticks
		want      bool
	}{
		{"long high", 50, 70, true},
		{"short high", 50, 26, false},
		{"equal phases", 50, 50, false},
		{"one tick longer", 50, 51, true},
		{"zero low", 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The first high sample ends the low wait, so the high
			// segment is one longer than the measured high phase.
			line := gpio.NewFakeLine([]gpio.Segment{
				{High: false, Polls: tt.low},
				{High: true, Polls: tt.high + 1},
				{High: false, Polls: 1},
			})
			d := newTestDevice(line)

			got, err := d.readBit()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("low=%d high=%d: got %v, want %v", tt.low, tt.high, got, tt.want)
			}
		})
	}
}

func TestReadFramePacksMSBFirst(t *testing.T) {
	want := Frame{0x01, 0x80, 0xAA, 0x55, 0xFF}
	line := gpio.NewFakeLine(gpio.PulseTrain(want[:]...))
	d := newTestDevice(line)

	got, err := d.ReadFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("frame: got % x, want % x", got, want)
	}
}

func TestReadHandshakeSequence(t *testing.T) {
	f := frameWithChecksum(40, 0, 20, 0)
	line := gpio.NewFakeLine(gpio.PulseTrain(f[:]...))
	d := newTestDevice(line)

	if _, err := d.Read(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// release, start low, release
	want := []bool{true, false, true}
	if len(line.Writes) != len(want) {
		t.Fatalf("Writes: got %v, want %v", line.Writes, want)
	}
	for i := range want {
		if line.Writes[i] != want[i] {
			t.Errorf("write %d: got %v, want %v", i, line.Writes[i], want[i])
		}
	}
}

func TestReadChecked(t *testing.T) {
	f := frameWithChecksum(55, 2, 21, 3)
	line := gpio.NewFakeLine(gpio.PulseTrain(f[:]...))
	d := newTestDevice(line)

	m, err := d.ReadChecked()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Humidity != 55.2 {
		t.Errorf("Humidity: got %v, want 55.2", m.Humidity)
	}
	if m.Temperature != 21.3 {
		t.Errorf("Temperature: got %v, want 21.3", m.Temperature)
	}
}

func TestChecksumMismatch(t *testing.T) {
	f := frameWithChecksum(55, 2, 21, 3)
	f[4]++
	line := gpio.NewFakeLine(gpio.PulseTrain(f[:]...))
	d := newTestDevice(line)

	_, err := d.ReadChecked()
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("strict: got %v, want ErrChecksumMismatch", err)
	}

	m, err := d.Read()
	if err != nil {
		t.Fatalf("lenient: unexpected error: %v", err)
	}
	want := Measurement{Temperature: 21.3, Humidity: 55.2}
	if m != want {
		t.Errorf("lenient: got %+v, want %+v", m, want)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  Measurement
	}{
		{"positive", frameWithChecksum(42, 0, 23, 5), Measurement{Temperature: 23.5, Humidity: 42}},
		{"negative", frameWithChecksum(30, 1, 0x80|5, 4), Measurement{Temperature: -5.4, Humidity: 30.1}},
		{"zero", frameWithChecksum(0, 0, 0, 0), Measurement{}},
		{"sign bit only", frameWithChecksum(10, 0, 0x80, 0), Measurement{Temperature: 0, Humidity: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.frame, Strict)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChecksumWraps(t *testing.T) {
	f := Frame{200, 100, 0, 0}
	if got := Checksum(f); got != 44 {
		t.Errorf("Checksum: got %d, want 44", got)
	}
}

func TestTimeoutStuckLow(t *testing.T) {
	line := gpio.NewFakeLine(nil)
	line.IdleLow = true
	d := newTestDevice(line, WithTimeout(100))

	_, err := d.Read()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read: got %v, want ErrTimeout", err)
	}
	if line.Polls != 101 {
		t.Errorf("Polls: got %d, want 101", line.Polls)
	}
}

func TestTimeoutStuckHigh(t *testing.T) {
	line := gpio.NewFakeLine(nil)
	d := newTestDevice(line, WithTimeout(100))

	_, err := d.ReadChecked()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read: got %v, want ErrTimeout", err)
	}
	if line.Polls > 102 {
		t.Errorf("Polls: got %d, want at most 102", line.Polls)
	}
}

func TestTimeoutDefaultBudget(t *testing.T) {
	line := gpio.NewFakeLine(nil)
	line.IdleLow = true
	d := newTestDevice(line)

	if _, err := d.Read(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read: got %v, want ErrTimeout", err)
	}
	if line.Polls != int(DefaultTimeout)+1 {
		t.Errorf("Polls: got %d, want %d", line.Polls, DefaultTimeout+1)
	}
}

func TestTimeoutMidFrame(t *testing.T) {
	f := frameWithChecksum(1, 2, 3, 4)
	script := gpio.PulseTrain(f[:]...)
	line := gpio.NewFakeLine(script[:20])
	line.IdleLow = true
	d := newTestDevice(line)

	if _, err := d.Read(); !errors.Is(err, ErrTimeout) {
		t.Errorf("Read: got %v, want ErrTimeout", err)
	}
}

func TestTimeoutTrailer(t *testing.T) {
	// All 40 bits arrive but the line never returns to idle.
	f := frameWithChecksum(1, 2, 3, 4)
	line := gpio.NewFakeLine(gpio.PulseTrain(f[:]...))
	line.IdleLow = true
	d := newTestDevice(line)

	if _, err := d.ReadFrame(); !errors.Is(err, ErrTimeout) {
		t.Errorf("Read: got %v, want ErrTimeout", err)
	}
}

func TestGpioFault(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		line := gpio.NewFakeLine(nil)
		line.ReadError = errors.New("simulated read error")
		d := newTestDevice(line)

		_, err := d.Read()
		if !errors.Is(err, ErrGpio) {
			t.Fatalf("Read: got %v, want ErrGpio", err)
		}
		var ge *GpioError
		if !errors.As(err, &ge) || ge.Op != "is_high" {
			t.Errorf("Read: got %v, want GpioError on is_high", err)
		}
	})

	t.Run("write", func(t *testing.T) {
		line := gpio.NewFakeLine(nil)
		line.WriteError = errors.New("simulated write error")
		d := newTestDevice(line)

		_, err := d.ReadChecked()
		var ge *GpioError
		if !errors.As(err, &ge) || ge.Op != "set_high" {
			t.Fatalf("Read: got %v, want GpioError on set_high", err)
		}
		if !errors.Is(err, line.WriteError) {
			t.Errorf("Read: got %v, want wrapped line error", err)
		}
	})
}

func TestRepeatedReads(t *testing.T) {
	f := frameWithChecksum(61, 0, 19, 8)
	line := gpio.NewFakeLine(gpio.PulseTrain(f[:]...))
	d := newTestDevice(line)

	for i := 0; i < 3; i++ {
		m, err := d.ReadChecked()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if m.Humidity != 61 || m.Temperature != 19.8 {
			t.Errorf("read %d: unexpected measurement %+v", i, m)
		}
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrTimeout, "timeout"},
		{ErrChecksumMismatch, "checksum"},
		{&GpioError{Op: "is_high", Err: errors.New("x")}, "gpio"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("strict"); err != nil || m != Strict {
		t.Errorf("strict: got %v, %v", m, err)
	}
	if m, err := ParseMode("lenient"); err != nil || m != Lenient {
		t.Errorf("lenient: got %v, %v", m, err)
	}
	if _, err := ParseMode("crc"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
