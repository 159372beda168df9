package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/drishti/internal/app"
	"github.com/ayusman/drishti/internal/calib"
	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/measure"
	"github.com/ayusman/drishti/internal/render"
	"github.com/ayusman/drishti/internal/server"
	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/internal/track"

	"gocv.io/x/gocv"
)

func init() {
	// GLFW and the GL context must stay on the thread that created them.
	runtime.LockOSThread()
}

func main() {
	var (
		device     = flag.Int("device", 0, "camera device id")
		video      = flag.String("video", "", "video file source (overrides -device)")
		calibPath  = flag.String("calib", "", "camera calibration JSON file")
		markerSize = flag.Float64("marker-size", measure.DefaultMarkerSize, "physical marker side length; distances come out in its units")
		dbPath     = flag.String("db", "", "sqlite measurement log (empty disables logging)")
		listen     = flag.String("listen", "", "HTTP listen address for the live feed (empty disables)")
		logEvery   = flag.Int64("log-every", app.DefaultLogEvery, "store a reading every N frames")
	)
	flag.Parse()

	if *calibPath == "" {
		log.Fatal("a calibration file is required (-calib)")
	}
	cam, err := calib.LoadFile(*calibPath)
	if err != nil {
		log.Fatalf("Failed to load calibration: %v", err)
	}
	cam.Dump(os.Stdout)

	var camera capture.Camera
	var source string
	if *video != "" {
		camera = capture.NewFileCamera(*video, cam.Width, cam.Height)
		source = "video:" + *video
	} else {
		camera = capture.NewCamera(*device, cam.Width, cam.Height)
		source = fmt.Sprintf("device:%d", *device)
	}
	if err := camera.Open(); err != nil {
		log.Fatalf("Failed to open %s: %v", source, err)
	}
	defer camera.Close()

	tracker := track.NewArucoTracker(cam, gocv.ArucoDict4x4_50)
	defer tracker.Close()

	cfg := app.Config{
		Camera:      camera,
		Tracker:     tracker,
		CameraModel: cam,
		MarkerSize:  *markerSize,
		LogEvery:    *logEvery,
	}

	if *dbPath != "" {
		st, err := store.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer st.Close()

		sess := &store.Session{
			ID:         uuid.NewString(),
			Source:     source,
			MarkerSize: *markerSize,
			StartedAt:  time.Now(),
		}
		if err := st.Sessions().Create(sess); err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		log.Printf("Recording session %s", sess.ID)

		cfg.Store = st
		cfg.SessionID = sess.ID
	}

	if *listen != "" {
		feed := server.NewFeed()
		srv := server.New(server.Config{Store: cfg.Store, Feed: feed})
		go func() {
			log.Printf("Feed listening on %s", *listen)
			if err := srv.ListenAndServe(*listen); err != nil {
				log.Printf("Feed server stopped: %v", err)
			}
		}()
		cfg.Feed = feed
	}

	view, err := render.NewView(cam, "Distance:   0.0000")
	if err != nil {
		log.Fatalf("Failed to open window: %v", err)
	}
	defer view.Destroy()
	cfg.Renderer = view

	session := app.New(cfg)

	view.OnKey = func(r rune) {
		switch r {
		case 'c':
			cam.Dump(os.Stdout)
		case 'p':
			view.Compositor().DumpProjection(os.Stdout)
		case 'm':
			session.DumpPose(os.Stdout)
		}
	}

	if err := session.Run(); err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
}
