package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/oklog/ulid/v2"
)

// Call sends req to the daemon at socket and returns its response. An empty
// request ID is filled with a new ULID. A response carrying an error message
// is returned together with a non-nil error.
func Call(ctx context.Context, socket string, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = ulid.Make().String()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon: %w (is `bledob daemon` running?)", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.ID != req.ID {
		return resp, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return resp, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}
