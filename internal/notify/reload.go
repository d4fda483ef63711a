package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Reload tells the live scanner to reload its in-memory nest set. Failure
// here is logged by the caller, never fatal: the catalog is already
// consistent and the scanner will pick it up on its next restart.
func Reload(ctx context.Context, url, secret string) error {
	if url == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reload endpoint returned %s", resp.Status)
	}
	return nil
}
