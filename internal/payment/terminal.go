package payment

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-faster/errors"
)

// DefaultScriptURL is the hosted checkout script of the gateway.
const DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

var (
	_ Gateway = (*TerminalGateway)(nil)
	_ Widget  = (*terminalWidget)(nil)
)

// TerminalGateway is a Gateway for interactive terminals. Load checks that
// the hosted checkout is reachable; the widget prints the payment details
// and reads the gateway's payment id and signature from the input. An empty
// payment id dismisses the widget.
type TerminalGateway struct {
	client    *http.Client
	scriptURL string
	in        *bufio.Reader
	out       io.Writer

	// A single goroutine reads the input for the lifetime of the gateway,
	// so a prompt abandoned on cancellation never loses or races for a line.
	// It exits when the input ends.
	start sync.Once
	lines chan line
}

// NewTerminalGateway creates a TerminalGateway. An empty scriptURL skips the
// reachability check.
func NewTerminalGateway(client *http.Client, scriptURL string, in io.Reader, out io.Writer) *TerminalGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &TerminalGateway{
		client:    client,
		scriptURL: scriptURL,
		in:        bufio.NewReader(in),
		out:       out,
		lines:     make(chan line),
	}
}

func (g *TerminalGateway) readLines() {
	defer close(g.lines)
	for {
		s, err := g.in.ReadString('\n')
		switch {
		case err == nil:
			g.lines <- line{text: strings.TrimSpace(s)}
		case errors.Is(err, io.EOF):
			if s != "" {
				g.lines <- line{text: strings.TrimSpace(s)}
			}
			return
		default:
			g.lines <- line{err: err}
			return
		}
	}
}

// Load implements Gateway.
func (g *TerminalGateway) Load(ctx context.Context) (Widget, error) {
	if g.scriptURL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.scriptURL, http.NoBody)
		if err != nil {
			return nil, errors.Wrap(err, "create request")
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "fetch checkout script")
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, errors.Errorf("fetch checkout script: unexpected status %d", resp.StatusCode)
		}
	}
	return &terminalWidget{g: g}, nil
}

type terminalWidget struct {
	g *TerminalGateway

	mu     sync.Mutex
	closed bool
}

type line struct {
	text string
	err  error
}

// Open implements Widget.
func (w *terminalWidget) Open(ctx context.Context, req OpenRequest) (*Confirmation, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, errors.New("widget closed")
	}

	out := w.g.out
	_, _ = fmt.Fprintf(out, "\nPay %s %s for order %s\n", req.Amount.StringFixed(2), req.Currency, req.OrderID)
	_, _ = fmt.Fprintf(out, "  gateway order: %s\n  key: %s\n", req.GatewayOrderID, req.KeyID)
	if req.Customer.Email != "" {
		_, _ = fmt.Fprintf(out, "  customer: %s <%s>\n", req.Customer.Name, req.Customer.Email)
	}

	paymentID, err := w.prompt(ctx, "Payment ID (empty to cancel): ")
	if err != nil {
		return nil, err
	}
	if paymentID == "" {
		return nil, ErrDismissed
	}
	signature, err := w.prompt(ctx, "Signature: ")
	if err != nil {
		return nil, err
	}
	return &Confirmation{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      paymentID,
		Signature:      signature,
	}, nil
}

// prompt reads one line. End of input counts as an empty answer.
func (w *terminalWidget) prompt(ctx context.Context, label string) (string, error) {
	_, _ = io.WriteString(w.g.out, label)
	w.g.start.Do(func() { go w.g.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-w.g.lines:
		if !ok {
			return "", nil
		}
		if l.err != nil {
			return "", errors.Wrap(l.err, "read input")
		}
		return l.text, nil
	}
}

// Close implements Widget.
func (w *terminalWidget) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}
