package api

import (
	"io"
	"net/http"

	"github.com/nerrad567/devspace-core/internal/output"
)

// handleOutput feeds a chunk of remote program output to the interpreter.
// The body is plain text; only newline-terminated lines are processed.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read body")
		return
	}

	sum, err := s.applyOutput(r, string(body))
	if err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// applyOutput runs one chunk through the interpreter on the space loop and
// reports the summary to browsers and the OnOutput hook.
func (s *Server) applyOutput(r *http.Request, chunk string) (output.Summary, error) {
	var sum output.Summary
	if err := s.do(r, func() error {
		sum = s.interpreter.HandleOutputChunk(chunk)
		return nil
	}); err != nil {
		return output.Summary{}, err
	}

	s.hub.Broadcast(ChannelOutput, sum)
	if s.onOutput != nil {
		s.onOutput(sum)
	}
	return sum, nil
}
