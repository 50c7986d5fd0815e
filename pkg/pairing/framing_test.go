package pairing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"small message", []byte("hello")},
		{"single byte", []byte{0x42}},
		{"binary data", []byte{0x00, 0xFF, 0x7F, 0x80}},
		{"max size message", bytes.Repeat([]byte("y"), DefaultMaxMessageSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			fw := NewFrameWriter(&buf)
			if err := fw.WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}

			fr := NewFrameReader(&buf)
			got, err := fr.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d", len(got), len(tt.payload))
			}
		})
	}
}

func TestWriteFrameEmpty(t *testing.T) {
	fw := NewFrameWriter(&bytes.Buffer{})
	if err := fw.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("WriteFrame(nil) error = %v, want %v", err, ErrMessageEmpty)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	fw := NewFrameWriterWithMaxSize(&bytes.Buffer{}, 16)
	if err := fw.WriteFrame(bytes.Repeat([]byte("x"), 17)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("WriteFrame error = %v, want %v", err, ErrMessageTooLarge)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 32)
	buf.Write(lengthBuf[:])

	fr := NewFrameReaderWithMaxSize(&buf, 16)
	if _, err := fr.ReadFrame(); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ReadFrame error = %v, want %v", err, ErrMessageTooLarge)
	}
}

func TestReadFrameZeroLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, LengthPrefixSize))

	fr := NewFrameReader(&buf)
	if _, err := fr.ReadFrame(); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("ReadFrame error = %v, want %v", err, ErrMessageEmpty)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"partial length prefix", []byte{0x00, 0x00}},
		{"partial payload", []byte{0x00, 0x00, 0x00, 0x05, 'h', 'i'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := NewFrameReader(bytes.NewReader(tt.data))
			if _, err := fr.ReadFrame(); !errors.Is(err, ErrFrameTruncated) {
				t.Errorf("ReadFrame error = %v, want %v", err, ErrFrameTruncated)
			}
		})
	}
}

func TestFramerSequentialFrames(t *testing.T) {
	var buf bytes.Buffer
	framer := NewFramer(&buf)

	frames := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, f := range frames {
		if err := framer.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	for i, want := range frames {
		got, err := framer.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}
}
