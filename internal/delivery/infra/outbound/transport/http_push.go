package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	deliveryDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/domain"
)

// HTTPPush entrega mensajes push a través del endpoint HTTP de un proveedor
// opaco. Un 404 o un 410 del proveedor significa que el token ya no existe:
// se mapea a ErrRegistrationInvalid para que el worker lo clasifique como
// permanente.
type HTTPPush struct {
	name   string
	url    string
	client *http.Client
}

func NewHTTPPush(name, url string, timeout time.Duration) *HTTPPush {
	return &HTTPPush{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPPush) Name() string {
	return t.name
}

func (t *HTTPPush) Send(ctx context.Context, msg deliveryDomain.Message) error {
	data, err := json.Marshal(msg)
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

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%s returned %d: %w", t.name, resp.StatusCode, deliveryDomain.ErrRegistrationInvalid)
	default:
		return fmt.Errorf("%s returned status %d", t.name, resp.StatusCode)
	}
}

var _ deliveryDomain.Transport = (*HTTPPush)(nil)
