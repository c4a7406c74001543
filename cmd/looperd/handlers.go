package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jstrand/loopdeck/internal/effects"
	"github.com/jstrand/loopdeck/internal/exportfmt"
	"github.com/jstrand/loopdeck/internal/session"
)

// commandRequest is the POST /api/command body: track is 1-based and
// ignored by global commands (toggleMonitor, startMixRecord, stopMixRecord).
type commandRequest struct {
	Track      int                `json:"track"`
	Cmd        string             `json:"cmd"`
	Divider    int                `json:"divider,omitempty"`
	EffectType string             `json:"effect_type,omitempty"`
	EffectID   string             `json:"effect_id,omitempty"`
	Dir        int                `json:"dir,omitempty"`
	Key        string             `json:"key,omitempty"`
	Value      float64            `json:"value,omitempty"`
	Params     map[string]float64 `json:"params,omitempty"`
	Confirmed  bool               `json:"confirmed,omitempty"`
}

func commandHandler(coord *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req commandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		var err error
		switch req.Cmd {
		case "press":
			err = coord.Press(r.Context(), req.Track)
		case "stop":
			err = coord.Stop(req.Track)
		case "clear":
			err = coord.Clear(req.Track)
		case "undo":
			err = coord.Undo(req.Track)
		case "setDivider":
			err = coord.Track(req.Track).SetDivider(req.Divider)
		case "addEffect":
			_, err = coord.Track(req.Track).AddEffect(effects.Type(req.EffectType), req.Params)
		case "removeEffect":
			err = coord.Track(req.Track).RemoveEffect(req.EffectID)
		case "moveEffect":
			err = coord.Track(req.Track).MoveEffect(req.EffectID, req.Dir)
		case "toggleBypass":
			err = coord.Track(req.Track).ToggleBypass(req.EffectID)
		case "setParam":
			err = coord.Track(req.Track).SetParam(req.EffectID, req.Key, req.Value)
		case "confirmOverdub":
			coord.ConfirmOverdubOverride(req.Confirmed)
		case "toggleMonitor":
			muted := coord.ToggleMonitor()
			writeJSON(w, map[string]any{"ok": true, "muted": muted})
			return
		case "startMixRecord":
			err = coord.StartMixRecord(context.Background(), 2)
		case "stopMixRecord":
			var buf any
			b, stopErr := coord.StopMixRecord()
			if stopErr != nil {
				err = stopErr
				break
			}
			buf = map[string]any{"duration": b.Duration(), "samples": b.Len()}
			writeJSON(w, map[string]any{"ok": true, "mix": buf})
			return
		default:
			http.Error(w, fmt.Sprintf("unknown cmd %q", req.Cmd), http.StatusBadRequest)
			return
		}

		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func statusHandler(coord *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks := make([]map[string]any, 4)
		for i := 1; i <= 4; i++ {
			info := coord.Track(i).Info()
			effectsOut := make([]map[string]any, len(info.Effects))
			for j, d := range info.Effects {
				effectsOut[j] = map[string]any{
					"id":     d.ID,
					"type":   string(d.Type),
					"params": d.Params,
					"bypass": d.Bypass,
				}
			}
			tracks[i-1] = map[string]any{
				"index":         i,
				"state":         info.State.String(),
				"loop_duration": info.LoopDuration,
				"loop_start":    info.LoopStart,
				"divider":       info.Divider,
				"pitch_semis":   info.PitchSemis,
				"undo_depth":    info.UndoDepth,
				"ui_locked":     info.UILocked,
				"effects":       effectsOut,
			}
		}
		writeJSON(w, map[string]any{
			"tracks":            tracks,
			"loopback_detected": coord.LoopbackDetected(),
		})
	}
}

func exportHandler(coord *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trackIdx, err := strconv.Atoi(r.URL.Query().Get("track"))
		if err != nil || trackIdx < 1 || trackIdx > 4 {
			http.Error(w, "track query param must be 1-4", http.StatusBadRequest)
			return
		}
		buf := coord.Track(trackIdx).Buffer()
		if buf == nil {
			http.Error(w, "track has no recorded loop", http.StatusNotFound)
			return
		}

		format := r.URL.Query().Get("format")
		bw := bufio.NewWriter(w)
		defer bw.Flush()

		switch format {
		case "opus":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="track%d.opus"`, trackIdx))
			if err := exportfmt.WriteOpus(bw, buf, 96000); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		default:
			w.Header().Set("Content-Type", "audio/wav")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="track%d.wav"`, trackIdx))
			if err := buf.WriteWAV(bw); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func eventsHandler(hub *eventHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		for {
			select {
			case <-r.Context().Done():
				return
			case e := <-ch:
				data, err := e.json()
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
				flusher.Flush()
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}
