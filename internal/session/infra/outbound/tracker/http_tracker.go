package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	sessionDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
)

// HTTPTracker notifica partidas completadas al servicio de engagement por
// request/response directo. El timeout corto es deliberado: esta llamada es
// mejor-esfuerzo y no puede retener el cierre de la sesión.
type HTTPTracker struct {
	url    string
	client *http.Client
}

func NewHTTPTracker(url string, timeout time.Duration) *HTTPTracker {
	return &HTTPTracker{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type trackRequest struct {
	UserID       string `json:"userId"`
	GameID       string `json:"gameId"`
	SessionID    string `json:"sessionId"`
	PointsEarned int    `json:"pointsEarned"`
	CompletedAt  string `json:"completedAt"`
}

func (t *HTTPTracker) Track(ctx context.Context, s *sessionDomain.GameSession) error {
	body := trackRequest{
		UserID:       s.UserID,
		GameID:       s.GameID,
		SessionID:    s.ID.String(),
		PointsEarned: s.PointsEarned,
	}
	if s.CompletedAt != nil {
		body.CompletedAt = s.CompletedAt.Format(time.RFC3339)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("engagement tracker returned status %d", resp.StatusCode)
	}
	return nil
}

var _ sessionDomain.EngagementTracker = (*HTTPTracker)(nil)
