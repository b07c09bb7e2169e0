// Package hostaudio is the PortAudio implementation of audiocapture.Backend.
// It needs cgo and the PortAudio library; the capture session itself does not.
package hostaudio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"go.aimuz.me/murmur/audiocapture"
)

// maxChannels caps devices that report dozens of inputs (aggregate and pro interfaces).
const maxChannels = 2

// PortAudio is an audiocapture.Backend backed by the PortAudio library.
type PortAudio struct{}

var _ audiocapture.Backend = (*PortAudio)(nil)

// New initializes PortAudio. Call Close when done.
func New() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudio{}, nil
}

// Close terminates PortAudio.
func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

// DefaultInput returns the host's default input device at its native rate.
func (p *PortAudio) DefaultInput() (audiocapture.Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return audiocapture.Device{}, fmt.Errorf("%w: %v", audiocapture.ErrNoInputDevice, err)
	}
	if info == nil || info.MaxInputChannels < 1 {
		return audiocapture.Device{}, audiocapture.ErrNoInputDevice
	}

	return audiocapture.Device{
		Name:       info.Name,
		Channels:   min(info.MaxInputChannels, maxChannels),
		SampleRate: info.DefaultSampleRate,
		Handle:     info,
	}, nil
}

// Open opens an input-only stream on dev.
func (p *PortAudio) Open(dev audiocapture.Device, cb func(in []float32)) (audiocapture.Stream, error) {
	info, ok := dev.Handle.(*portaudio.DeviceInfo)
	if !ok {
		return nil, errors.New("device was not enumerated by portaudio")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: dev.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      dev.SampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}

	// Pa_StopStream blocks until pending buffers are processed, so *portaudio.Stream
	// satisfies the Stream drain contract.
	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
