package stream

import (
	"encoding/binary"
	"net/http"
)

// NewRawPCMHandler serves the broadcaster's frames as a continuous raw
// PCM16LE stream -- no container, no codec -- for callers that can consume
// it directly (e.g. a local dev client) without the WebRTC negotiation
// /offer requires.
func NewRawPCMHandler(b *Broadcaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Cache-Control", "no-cache")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		listener := b.Subscribe()
		defer b.Unsubscribe(listener)

		buf := make([]byte, 0, 4096)
		for {
			select {
			case <-r.Context().Done():
				return
			case <-listener.done:
				return
			case frame, ok := <-listener.C:
				if !ok {
					return
				}
				buf = buf[:0]
				for _, s := range frame {
					buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
				}
				if _, err := w.Write(buf); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}
