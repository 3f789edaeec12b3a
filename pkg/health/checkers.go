package health

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
)

// HTTPCheck returns a CheckFunc that issues GET url with client and reports
// any 2xx response as healthy.
func HTTPCheck(client *http.Client, url string) CheckFunc {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return errors.Wrap(err, "ping")
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<12))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return errors.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	}
}
