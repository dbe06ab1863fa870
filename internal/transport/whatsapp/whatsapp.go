// Package whatsapp implements transport.Adapter over the WhatsApp Web
// protocol via whatsmeow. First-time pairing prints a QR code to the
// terminal; the session is persisted under the configured data directory.
package whatsapp

import (
	"context"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"github.com/zulandar/shepherd/internal/phone"
	"github.com/zulandar/shepherd/internal/transport"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// Adapter implements transport.Adapter for WhatsApp.
type Adapter struct {
	client *whatsmeow.Client
	log    zerolog.Logger

	mu      sync.Mutex
	inbound chan transport.InboundMessage
	closed  bool
}

// Opts holds parameters for creating a WhatsApp adapter.
type Opts struct {
	// DataDir is where the whatsmeow session database lives.
	DataDir string
}

// New creates a WhatsApp adapter backed by a sqlite session store.
func New(opts Opts) (*Adapter, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("whatsapp: data dir is required")
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("whatsapp: create data dir: %w", err)
	}

	ctx := context.Background()
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/session.db?_foreign_keys=on", opts.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open session store: %w", err)
	}
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}

	a := &Adapter{
		client:  whatsmeow.NewClient(deviceStore, nil),
		log:     zerolog.New(os.Stdout).With().Timestamp().Str("component", "whatsapp").Logger(),
		inbound: make(chan transport.InboundMessage, 100),
	}
	a.client.AddEventHandler(a.handleEvent)
	return a, nil
}

// Connect connects to WhatsApp. On first run the session is unpaired and a
// QR code is printed; Connect blocks until the user scans it.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.client.Store.ID == nil {
		qrChan, _ := a.client.GetQRChannel(ctx)
		if err := a.client.Connect(); err != nil {
			return fmt.Errorf("whatsapp: connect: %w", err)
		}
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				a.printQR(evt.Code)
			case "success":
				a.log.Info().Msg("paired")
			default:
				a.log.Info().Str("event", evt.Event).Msg("pairing")
			}
		}
		return nil
	}

	if err := a.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}
	return nil
}

// Listen returns the inbound message channel.
func (a *Adapter) Listen(ctx context.Context) (<-chan transport.InboundMessage, error) {
	if !a.client.IsConnected() {
		return nil, fmt.Errorf("whatsapp: listen before connect")
	}
	go func() {
		<-ctx.Done()
		a.Close()
	}()
	return a.inbound, nil
}

// Send delivers a text message to one recipient. The recipient identity is a
// canonical phone number, which maps directly to a WhatsApp JID.
func (a *Adapter) Send(ctx context.Context, msg transport.OutboundMessage) error {
	jid := types.NewJID(msg.To, types.DefaultUserServer)

	resp, err := a.client.IsOnWhatsApp(ctx, []string{msg.To})
	if err != nil {
		return fmt.Errorf("whatsapp: verify %s: %w", msg.To, err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("whatsapp: %s is not registered", msg.To)
	}
	jid = resp[0].JID

	text := msg.Text
	if _, err := a.client.SendMessage(ctx, jid, &waE2E.Message{Conversation: &text}); err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", msg.To, err)
	}
	return nil
}

// Close disconnects and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.client.Disconnect()
	close(a.inbound)
	return nil
}

func (a *Adapter) handleEvent(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Message:
		a.handleMessage(evt)
	case *events.Connected:
		a.log.Info().Msg("connected")
	case *events.Disconnected:
		a.log.Warn().Msg("disconnected")
	case *events.LoggedOut:
		a.log.Warn().Msg("logged out, session must be re-paired")
	}
}

func (a *Adapter) handleMessage(msg *events.Message) {
	if msg.Info.IsFromMe {
		return
	}
	text := msg.Message.GetConversation()
	if text == "" {
		if ext := msg.Message.GetExtendedTextMessage(); ext != nil {
			text = ext.GetText()
		}
	}
	if text == "" {
		return
	}

	in := transport.InboundMessage{
		Sender:    phone.Canonicalize(msg.Info.Sender.User),
		Text:      text,
		Timestamp: msg.Info.Timestamp,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.inbound <- in:
	default:
		a.log.Warn().Str("sender", in.Sender).Msg("inbound buffer full, dropping message")
	}
}

func (a *Adapter) printQR(code string) {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		fmt.Printf("QR code: %s\n", code)
		return
	}
	fmt.Println(q.ToSmallString(false))
	fmt.Println("Scan the QR code with WhatsApp (Settings > Linked Devices > Link a Device).")
}
