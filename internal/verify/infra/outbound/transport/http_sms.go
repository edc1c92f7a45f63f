package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	verifyDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
)

// HTTPSMS envía códigos de verificación a través del endpoint HTTP de un
// proveedor de SMS opaco.
type HTTPSMS struct {
	url    string
	client *http.Client
}

func NewHTTPSMS(url string, timeout time.Duration) *HTTPSMS {
	return &HTTPSMS{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPSMS) SendCode(ctx context.Context, to, code string) error {
	body, err := json.Marshal(map[string]string{
		"to":      to,
		"message": "Your verification code is " + code,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
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
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	return nil
}

var _ verifyDomain.SMSSender = (*HTTPSMS)(nil)
