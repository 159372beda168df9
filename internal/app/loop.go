package app

import (
	"fmt"
	"log"

	"github.com/ayusman/drishti/internal/measure"
	"github.com/ayusman/drishti/internal/overlay"
	"github.com/ayusman/drishti/internal/server"
	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/internal/track"
)

// Run drives the frame loop until the renderer reports a quit request.
// Quit is checked at iteration boundaries only; a request to stop takes
// effect after the current frame completes. A capture failure is fatal and
// returns the error; everything else is a steady state.
func (s *Session) Run() error {
	for !s.cfg.Renderer.ShouldClose() {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one full pipeline iteration. The frame buffer lives exactly one
// iteration: it is read fresh, annotated in place, uploaded as the
// background texture, and discarded.
func (s *Session) Step() error {
	frame, err := s.cfg.Camera.ReadFrame()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	defer frame.Close()

	markers, detectErr := s.cfg.Tracker.Detect(frame)
	if detectErr != nil {
		// A detector hiccup is not fatal; the frame counts as empty and the
		// pose stays as it was. Selection is skipped too, so a stale marker
		// list inside the tracker cannot be re-selected as current.
		log.Printf("detect: %v", detectErr)
		markers = nil
	}

	overlay.Annotate(frame, markers)

	// No marker visible leaves the pose untouched rather than resetting it
	// to identity, so the rendered object does not pop on marker loss.
	selected := false
	if detectErr == nil {
		if selected = s.cfg.Tracker.SelectBest(); selected {
			s.pose = s.cfg.Tracker.Pose()
		}
	}

	if err := s.cfg.Renderer.UploadFrame(frame); err != nil {
		return fmt.Errorf("upload frame: %w", err)
	}

	s.distance = measure.Distance(s.pose, s.cfg.MarkerSize)

	s.cfg.Renderer.SetTitle(fmt.Sprintf("Distance: %8.4f", s.distance))
	s.cfg.Renderer.Draw(s.pose)
	s.cfg.Renderer.Present()

	s.record(markers, selected)
	s.frame++

	return nil
}

// record publishes the iteration's reading to the feed and samples it into
// the store.
func (s *Session) record(markers []track.Marker, selected bool) {
	best := bestMarker(markers)

	if s.cfg.Feed != nil {
		u := server.Update{
			Frame:    s.frame,
			Markers:  len(markers),
			Distance: s.distance,
		}
		if best != nil {
			u.MarkerID = best.ID
			u.Confidence = best.Confidence
		}
		s.cfg.Feed.Publish(u)
	}

	if s.cfg.Store != nil && selected && best != nil && s.frame%s.cfg.LogEvery == 0 {
		err := s.cfg.Store.Readings().Create(&store.Reading{
			SessionID:  s.cfg.SessionID,
			Frame:      s.frame,
			MarkerID:   best.ID,
			Distance:   s.distance,
			Confidence: best.Confidence,
		})
		if err != nil {
			log.Printf("record reading: %v", err)
		}
	}
}

// bestMarker returns the highest-confidence marker, or nil for an empty
// frame.
func bestMarker(markers []track.Marker) *track.Marker {
	if len(markers) == 0 {
		return nil
	}
	best := &markers[0]
	for i := range markers {
		if markers[i].Confidence > best.Confidence {
			best = &markers[i]
		}
	}
	return best
}
