package midi

import (
	"sort"

	"github.com/jsphweid/biaxial/constants"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// NumPitches is the full MIDI key range.
const NumPitches = 128

const velocity = 100

type noteEvent struct {
	tick      int64
	key       uint8
	isNoteOff bool
}

func stepTicks(s *smf.SMF) (int64, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return 0, errors.Errorf("unsupported time format %v", s.TimeFormat)
	}
	step := int64(ticks.Resolution()) / constants.NotesPerBeat
	if step <= 0 {
		return 0, errors.Errorf("resolution %d is too coarse", ticks.Resolution())
	}
	return step, nil
}

func collectEvents(s *smf.SMF) []noteEvent {
	var events []noteEvent
	for _, track := range s.Tracks {
		var absTicks int64
		for _, event := range track {
			absTicks += int64(event.Delta)
			var channel, key, vel uint8
			switch {
			case event.Message.GetNoteOn(&channel, &key, &vel):
				events = append(events, noteEvent{tick: absTicks, key: key, isNoteOff: vel == 0})
			case event.Message.GetNoteOff(&channel, &key, &vel):
				events = append(events, noteEvent{tick: absTicks, key: key, isNoteOff: true})
			}
		}
	}

	// prioritize smaller offset values then note off
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].isNoteOff && !events[j].isNoteOff
	})
	return events
}

// PianoRoll quantises every note of s onto a 16th-note grid of NumPitches
// columns. A note lasts at least one step.
func PianoRoll(s *smf.SMF) ([][]float64, error) {
	step, err := stepTicks(s)
	if err != nil {
		return nil, err
	}

	type span struct {
		key        uint8
		start, end int
	}
	var spans []span
	pressed := make(map[uint8]int)
	release := func(key uint8, tick int64) {
		start, ok := pressed[key]
		if !ok {
			return
		}
		end := int((tick + step/2) / step)
		if end <= start {
			end = start + 1
		}
		spans = append(spans, span{key: key, start: start, end: end})
		delete(pressed, key)
	}

	var lastTick int64
	for _, evt := range collectEvents(s) {
		lastTick = evt.tick
		if evt.isNoteOff {
			release(evt.key, evt.tick)
			continue
		}
		// re-striking a held key ends the previous note
		release(evt.key, evt.tick)
		pressed[evt.key] = int((evt.tick + step/2) / step)
	}
	for key := range pressed {
		release(key, lastTick)
	}

	length := 0
	for _, sp := range spans {
		if sp.end > length {
			length = sp.end
		}
	}
	roll := make([][]float64, length)
	for i := range roll {
		roll[i] = make([]float64, NumPitches)
	}
	for _, sp := range spans {
		for t := sp.start; t < sp.end; t++ {
			roll[t][sp.key] = 1
		}
	}
	return roll, nil
}

// Clip keeps columns [minNote, maxNote) and binarises them.
func Clip(roll [][]float64, minNote, maxNote int) [][]float64 {
	res := make([][]float64, len(roll))
	for t, frame := range roll {
		res[t] = make([]float64, maxNote-minNote)
		for i := range res[t] {
			if frame[minNote+i] > 0 {
				res[t][i] = 1
			}
		}
	}
	return res
}

// Restore pads the pitches below minNote back in front of every frame.
func Restore(frames [][]float64, minNote int) [][]float64 {
	res := make([][]float64, len(frames))
	for t, frame := range frames {
		res[t] = make([]float64, minNote+len(frame))
		copy(res[t][minNote:], frame)
	}
	return res
}

// Encode turns a piano roll whose column index is the MIDI key into a single
// track SMF, one frame per 16th note.
func Encode(frames [][]float64) (*smf.SMF, error) {
	s := smf.New()
	clock := smf.MetricTicks(constants.TicksPerBeat)
	s.TimeFormat = clock
	step := uint32(constants.TicksPerBeat / constants.NotesPerBeat)

	var track smf.Track
	track.Add(0, smf.MetaTempo(constants.DefaultBPM))

	var width int
	for _, frame := range frames {
		if len(frame) > width {
			width = len(frame)
		}
	}
	if width > NumPitches {
		return nil, errors.Errorf("frame width %d exceeds %d pitches", width, NumPitches)
	}

	on := make([]bool, width)
	var delta uint32
	for _, frame := range frames {
		for key := 0; key < width; key++ {
			sounding := key < len(frame) && frame[key] > 0
			if on[key] && !sounding {
				track.Add(delta, midi.NoteOff(0, uint8(key)))
				delta = 0
				on[key] = false
			}
		}
		for key := 0; key < width; key++ {
			sounding := key < len(frame) && frame[key] > 0
			if !on[key] && sounding {
				track.Add(delta, midi.NoteOn(0, uint8(key), velocity))
				delta = 0
				on[key] = true
			}
		}
		delta += step
	}
	for key := range on {
		if on[key] {
			track.Add(delta, midi.NoteOff(0, uint8(key)))
			delta = 0
		}
	}
	track.Close(delta)

	if err := s.Add(track); err != nil {
		return nil, errors.Wrap(err, "could not add track")
	}
	return s, nil
}
