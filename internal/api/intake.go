package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"wallet-winrate/internal/accounting"
	"wallet-winrate/internal/domain"
	"wallet-winrate/internal/observability"
	"wallet-winrate/internal/storage"
)

// IntakeResponse is the reply to POST /swaps.
type IntakeResponse struct {
	OK       bool `json:"ok"`
	Received int  `json:"received"`
	NewSwaps int  `json:"new_swaps"`
}

func (s *Server) handleSwaps(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && r.Header.Get("Authorization") != s.secret {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	items, err := splitItems(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no json")
		return
	}

	resp := IntakeResponse{OK: true, Received: len(items)}
	for _, raw := range items {
		observability.RecordSwapReceived()

		var rec domain.SwapRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			observability.RecordSwapRejected(accounting.RejectMalformed)
			continue
		}
		if reason := s.admission.Check(&rec); reason != "" {
			observability.RecordSwapRejected(reason)
			s.logger.Debug("swap rejected", zap.String("signature", rec.Signature), zap.String("reason", reason))
			continue
		}

		res, err := s.ingestor.Ingest(r.Context(), &rec)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidInput) {
				observability.RecordSwapRejected(accounting.RejectMalformed)
				continue
			}
			s.logger.Error("ingest swap",
				zap.String("signature", rec.Signature),
				zap.String("wallet", rec.Wallet),
				zap.Error(err),
			)
			continue
		}
		if res.Inserted {
			resp.NewSwaps++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// splitItems accepts an array of records, a {"data": [...]} wrapper or a
// single record.
func splitItems(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	if d := bytes.TrimSpace(wrapper.Data); len(d) > 0 && d[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(d, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	return []json.RawMessage{trimmed}, nil
}
