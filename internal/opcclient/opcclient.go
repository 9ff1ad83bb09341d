// Package opcclient reads machine telemetry over OPC UA. One Client
// wraps one machine endpoint; Poller drives the read loop and feeds the
// latest-state register.
package opcclient

import (
	"context"
	"fmt"
	"sort"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"
)

// Client is a per-machine OPC UA session reading a fixed variable set.
type Client struct {
	endpoint string
	user     string
	password string
	logger   zerolog.Logger

	// names holds the logical variable names in stable order; ids holds
	// the parsed node for each name.
	names []string
	ids   map[string]*ua.NodeID

	conn *opcua.Client
}

// New parses the variable map (logical name -> node id string) and
// returns an unconnected client.
func New(endpoint, user, password string, variables map[string]string, logger zerolog.Logger) (*Client, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("no variables configured for %s", endpoint)
	}

	names := make([]string, 0, len(variables))
	ids := make(map[string]*ua.NodeID, len(variables))
	for name, raw := range variables {
		id, err := ua.ParseNodeID(raw)
		if err != nil {
			return nil, fmt.Errorf("parse node id %q for %s: %w", raw, name, err)
		}
		names = append(names, name)
		ids[name] = id
	}
	sort.Strings(names)

	return &Client{
		endpoint: endpoint,
		user:     user,
		password: password,
		logger:   logger.With().Str("component", "opc-client").Str("endpoint", endpoint).Logger(),
		names:    names,
		ids:      ids,
	}, nil
}

// Connect discovers the server's endpoints and opens a username-token
// session.
func (c *Client) Connect(ctx context.Context) error {
	endpoints, err := opcua.GetEndpoints(ctx, c.endpoint)
	if err != nil {
		return fmt.Errorf("discover endpoints at %s: %w", c.endpoint, err)
	}
	ep, err := opcua.SelectEndpoint(endpoints, "None", ua.MessageSecurityModeNone)
	if err != nil {
		return fmt.Errorf("select endpoint at %s: %w", c.endpoint, err)
	}

	opts := []opcua.Option{
		opcua.SecurityPolicy("None"),
		opcua.SecurityModeString("None"),
		opcua.AuthUsername(c.user, c.password),
		opcua.SecurityFromEndpoint(ep, ua.UserTokenTypeUserName),
	}
	conn, err := opcua.NewClient(c.endpoint, opts...)
	if err != nil {
		return fmt.Errorf("create client for %s: %w", c.endpoint, err)
	}
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", c.endpoint, err)
	}
	c.conn = conn
	return nil
}

// ReadAll reads every configured variable in one request and returns the
// values by logical name. Variables the server could not serve are
// omitted; an error is returned only when nothing was readable.
func (c *Client) ReadAll(ctx context.Context) (map[string]any, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected to %s", c.endpoint)
	}

	nodes := make([]*ua.ReadValueID, 0, len(c.names))
	for _, name := range c.names {
		nodes = append(nodes, &ua.ReadValueID{NodeID: c.ids[name]})
	}
	resp, err := c.conn.Read(ctx, &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead:        nodes,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.endpoint, err)
	}

	values := make(map[string]any, len(c.names))
	for i, res := range resp.Results {
		if res.Status != ua.StatusOK || res.Value == nil {
			c.logger.Debug().
				Str("variable", c.names[i]).
				Uint32("status", uint32(res.Status)).
				Msg("variable not readable")
			continue
		}
		values[c.names[i]] = res.Value.Value()
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no readable variables at %s", c.endpoint)
	}
	return values, nil
}

// Close tears down the session. Safe on an unconnected client.
func (c *Client) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(ctx)
	c.conn = nil
	return err
}
