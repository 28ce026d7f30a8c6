package status

import (
	"context"
	"fmt"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	"github.com/go-resty/resty/v2"
)

// client polls a running host's object_info endpoint.
type client struct {
	resty *resty.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(100*time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "go_nodehost-status/1.0")

	return &client{resty: r}
}

// fetch returns every node the host describes and how long the request took.
func (c *client) fetch(ctx context.Context) snapshotMsg {
	start := time.Now()

	var nodes map[string]objinfo.Metadata
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&nodes).
		Get(objinfo.RouteList)
	msg := snapshotMsg{latency: time.Since(start), at: time.Now()}
	if err != nil {
		msg.err = err
		return msg
	}
	if resp.IsError() {
		msg.err = fmt.Errorf("unexpected status %s", resp.Status())
		return msg
	}
	msg.nodes = nodes

	return msg
}
