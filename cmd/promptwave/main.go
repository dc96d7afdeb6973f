package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/satindergrewal/promptwave/internal/audio"
	"github.com/satindergrewal/promptwave/internal/config"
	"github.com/satindergrewal/promptwave/internal/control"
	"github.com/satindergrewal/promptwave/internal/enhance"
	"github.com/satindergrewal/promptwave/internal/music"
	"github.com/satindergrewal/promptwave/internal/player"
	"github.com/satindergrewal/promptwave/internal/recorder"
	"github.com/satindergrewal/promptwave/internal/session"
	"github.com/satindergrewal/promptwave/internal/stems"
	"github.com/satindergrewal/promptwave/internal/store"
	"github.com/satindergrewal/promptwave/internal/stream"

	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("promptwave starting up...")

	// Playback pipeline: render sink is the audio clock, scheduler places
	// chunks on it, state machine tracks playback.
	sink := player.NewRenderSink(audio.SampleRate, audio.Channels)
	machine := player.NewMachine()
	sched := player.NewScheduler(sink, machine, cfg.Preroll)

	machine.Subscribe(func(s player.State) {
		log.Printf("Playback state: %s", s)
	})

	// Session adapter over the live websocket transport
	dialer := func(ctx context.Context, cb session.Callbacks) (session.Session, error) {
		live, err := session.Dial(ctx, session.DialOptions{
			URL:    cfg.SessionURL,
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}, cb)
		if err != nil {
			return nil, err
		}
		return live, nil
	}
	adapter := session.NewAdapter(dialer, machine, sched, sink)

	// Broadcaster: fan out rendered frames to recorder and monitor streams
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, sink.Frames())

	rec := recorder.NewSink(broadcaster, audio.SampleRate, audio.Channels)
	defer rec.Close()
	adapter.SetRecorder(rec)

	// Hardware output. When no device is available (headless deployments)
	// a ticker drives the sink so the monitor streams keep flowing.
	device, err := player.OpenDevice(sink)
	if err != nil {
		log.Printf("Audio device unavailable (%v), driving sink internally", err)
		go pumpSink(ctx, sink)
	} else {
		defer device.Close()
	}

	// Prompt/config state and debouncers
	state := control.NewState(adapter)

	// Persistence
	st, err := store.Open(cfg.DBPath, cfg.MediaDir)
	if err != nil {
		log.Fatalf("Store open failed: %v", err)
	}
	defer st.Close()

	stemsClient := stems.NewClient(cfg.StemsAPIURL)

	var enhancer *enhance.Enhancer
	if cfg.OllamaURL != "" {
		client := enhance.NewClient(cfg.OllamaURL, cfg.OllamaModel)
		if client.Available(ctx) {
			enhancer = enhance.NewEnhancer(client)
			log.Printf("Ollama connected: %s (prompt enhance enabled)", cfg.OllamaModel)
		} else {
			log.Println("Ollama not available, prompt enhance disabled")
		}
	}

	webrtcHandler := stream.NewWebRTCHandler(broadcaster)

	mux := http.NewServeMux()

	// Audio monitor streams
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster))
	mux.Handle("/offer", webrtcHandler)
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(st.MediaDir()))))

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"state":             machine.State().String(),
			"connection":        adapter.ConnState().String(),
			"playhead":          sink.Now(),
			"next_start":        sched.NextStart(),
			"preroll":           sched.Preroll(),
			"scheduled_sources": sink.ScheduledSources(),
			"prompts":           state.Prompts(),
			"filtered_prompts":  adapter.FilteredPrompts(),
			"config":            state.Config(),
			"recording":         rec.Recording(),
			"recorded_bytes":    rec.BytesRecorded(),
			"monitor_listeners": broadcaster.ListenerCount(),
			"webrtc_listeners":  webrtcHandler.PeerCount(),
		})
	})

	mux.HandleFunc("/api/prompts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, state.Prompts())
		case http.MethodPost:
			var req struct {
				Text  string `json:"text"`
				Color string `json:"color"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			p, err := state.AddPrompt(req.Text, req.Color)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, p)
		case http.MethodPut:
			var req struct {
				PromptID string  `json:"promptId"`
				Weight   float64 `json:"weight"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			if err := state.SetPromptWeight(req.PromptID, req.Weight); err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
		case http.MethodDelete:
			id := r.URL.Query().Get("promptId")
			if err := state.RemovePrompt(id); err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, state.Config())
		case http.MethodPost:
			var update struct {
				Partial bool `json:"partial"`
			}
			// Body is decoded twice: once for the merge flag, once for fields.
			// A partial update merges present fields; a full update replaces
			// the config so absent fields read as explicit clears.
			raw := json.RawMessage{}
			if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			json.Unmarshal(raw, &update)
			var mc musicConfigUpdate
			if err := json.Unmarshal(raw, &mc); err != nil {
				http.Error(w, "invalid config", http.StatusBadRequest)
				return
			}
			if update.Partial {
				state.UpdateConfig(mc.GenerationConfig)
			} else {
				state.SetConfig(mc.GenerationConfig)
			}
			writeJSON(w, state.Config())
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/config/reset", postOnly(func(w http.ResponseWriter, r *http.Request) {
		state.ResetConfig()
		writeJSON(w, state.Config())
	}))

	mux.HandleFunc("/api/connect", postOnly(func(w http.ResponseWriter, r *http.Request) {
		ok, err := adapter.Connect(r.Context(), session.Options{
			NoMockFallback: cfg.NoMockFallback,
			Timeout:        cfg.ConnectTimeout,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": ok, "connection": adapter.ConnState().String()})
	}))

	mux.HandleFunc("/api/play", postOnly(func(w http.ResponseWriter, r *http.Request) {
		if err := adapter.Play(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "state": machine.State().String()})
	}))

	mux.HandleFunc("/api/pause", postOnly(func(w http.ResponseWriter, r *http.Request) {
		if err := adapter.Pause(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "state": machine.State().String()})
	}))

	mux.HandleFunc("/api/stop", postOnly(func(w http.ResponseWriter, r *http.Request) {
		if err := adapter.Stop(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "state": machine.State().String()})
	}))

	mux.HandleFunc("/api/reset", postOnly(func(w http.ResponseWriter, r *http.Request) {
		if err := adapter.ResetContext(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}))

	mux.HandleFunc("/api/save", postOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title string `json:"title"`
			Owner string `json:"owner"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		clip, err := rec.StopAndFinalize()
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestTimeout)
			return
		}
		if clip == nil {
			http.Error(w, "no audio captured", http.StatusNotFound)
			return
		}

		title := req.Title
		if title == "" {
			title = "untitled session"
		}
		mediaURL, err := st.UploadBlob(title+".wav", clip.WAV())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		track := store.Track{
			ID:         uuid.NewString(),
			Owner:      req.Owner,
			Title:      title,
			PromptText: promptText(state),
			MediaURL:   mediaURL,
			Public:     true,
		}
		if err := st.SaveTrack(track); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, track)
	}))

	mux.HandleFunc("/api/tracks", func(w http.ResponseWriter, r *http.Request) {
		tracks, err := st.ListTracks(50)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, tracks)
	})

	mux.HandleFunc("/api/like", postOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TrackID string `json:"trackId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := st.LikeTrack(req.TrackID); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}))

	mux.HandleFunc("/api/separate", postOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TrackID   string `json:"trackId"`
			StemCount int    `json:"stems"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if req.StemCount <= 0 {
			req.StemCount = 4
		}
		track, err := st.GetTrack(req.TrackID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		go separateTrack(ctx, st, stemsClient, track, req.StemCount)
		writeJSON(w, map[string]any{"ok": true, "track_id": track.ID})
	}))

	mux.HandleFunc("/api/stems", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("trackId")
		list, err := st.StemsForTrack(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	})

	mux.HandleFunc("/api/enhance", postOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		result := req.Prompt
		if enhancer != nil {
			result = enhancer.Enhance(r.Context(), req.Prompt)
		}
		writeJSON(w, map[string]any{"prompt": result})
	}))

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		state.Flush()
		adapter.Teardown()
		server.Close()
	}()

	log.Printf("promptwave live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// musicConfigUpdate decodes the config fields of an update request.
type musicConfigUpdate struct {
	music.GenerationConfig
}

// pumpSink advances the render clock in real time when no output device
// is pulling frames.
func pumpSink(ctx context.Context, sink *player.RenderSink) {
	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sink.Advance(audio.FrameSize)
		}
	}
}

// promptText joins the active prompt texts for track metadata.
func promptText(state *control.State) string {
	prompts := state.Prompts()
	text := ""
	for i, p := range prompts {
		if i > 0 {
			text += ", "
		}
		text += p.Text
	}
	return text
}

// separateTrack runs the full stem separation flow for a saved track
// and records each stem. Runs in the background; failures are logged.
func separateTrack(ctx context.Context, st *store.Store, client *stems.Client, track *store.Track, stemCount int) {
	wav, err := st.ReadBlob(track.MediaURL)
	if err != nil {
		log.Printf("Stems: read track %s failed: %v", track.ID, err)
		return
	}
	blobs, err := client.Separate(ctx, track.Title+".wav", wav, stemCount)
	if err != nil {
		log.Printf("Stems: separation for track %s failed: %v", track.ID, err)
		return
	}
	for _, blob := range blobs {
		url, err := st.UploadBlob(blob.Name, blob.Data)
		if err != nil {
			log.Printf("Stems: upload %s failed: %v", blob.Name, err)
			continue
		}
		stemType := strings.TrimSuffix(blob.Name, ".wav")
		if err := st.AddStem(store.Stem{TrackID: track.ID, StemType: stemType, MediaURL: url}); err != nil {
			log.Printf("Stems: record %s failed: %v", stemType, err)
		}
	}
	log.Printf("Stems: track %s separated into %d stems", track.ID, len(blobs))
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}
