package menu

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zulandar/shepherd/internal/directory"
)

// AdminCommands answers operator commands sent over the chat channel by the
// configured admin identity. Unlike the user menu, replies here may echo raw
// error detail.
type AdminCommands struct {
	gateway   directory.Gateway
	runNow    func(ctx context.Context) error
	status    func() string
	lookback  int
	lookahead int
	now       func() time.Time
}

// AdminCommandsOpts holds parameters for creating AdminCommands.
type AdminCommandsOpts struct {
	Gateway directory.Gateway
	// RunNow triggers the daily campaign run immediately.
	RunNow func(ctx context.Context) error
	// Status renders the scheduler's current state.
	Status func() string
	// VisitorLookbackDays / EventLookaheadDays bound the debug candidate
	// queries; both default to 7.
	VisitorLookbackDays int
	EventLookaheadDays  int
	Now                 func() time.Time // defaults to time.Now
}

// NewAdminCommands creates AdminCommands.
func NewAdminCommands(opts AdminCommandsOpts) (*AdminCommands, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("menu: admin commands: gateway is required")
	}
	lookback := opts.VisitorLookbackDays
	if lookback <= 0 {
		lookback = 7
	}
	lookahead := opts.EventLookaheadDays
	if lookahead <= 0 {
		lookahead = 7
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AdminCommands{
		gateway:   opts.Gateway,
		runNow:    opts.RunNow,
		status:    opts.Status,
		lookback:  lookback,
		lookahead: lookahead,
		now:       now,
	}, nil
}

// Execute runs one operator command. The second return is false when the
// text is not an operator command, letting the caller fall through to the
// regular menu flow.
func (a *AdminCommands) Execute(ctx context.Context, text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "admin":
		return a.helpReply(), true
	case "status":
		return a.statusReply(), true
	case "debug":
		return a.debugReply(), true
	case "executar":
		return a.executeReply(ctx), true
	default:
		return "", false
	}
}

func (a *AdminCommands) helpReply() string {
	return `🤖 *Menu Administrativo*

🔧 Comandos disponíveis:
• status - Status do sistema
• debug - Candidatos das campanhas de hoje
• executar - Executar verificação diária agora`
}

func (a *AdminCommands) statusReply() string {
	now := a.now()
	var b strings.Builder
	b.WriteString("🤖 *Status do Sistema*\n\n")
	fmt.Fprintf(&b, "📅 Data: %s\n🕒 Hora: %s\n", now.Format("02/01/2006"), now.Format("15:04"))
	if a.status != nil {
		b.WriteString("\n" + a.status())
	}
	return b.String()
}

// debugReply lists today's campaign candidates with raw error detail. This
// surface is operator-only, so errors are echoed verbatim.
func (a *AdminCommands) debugReply() string {
	var b strings.Builder
	b.WriteString("🔍 *Debug - Candidatos de hoje*\n\n")

	birthdays, err := a.gateway.ListAllBirthdaysToday()
	if err != nil {
		fmt.Fprintf(&b, "🎂 Aniversariantes: erro: %v\n", err)
	} else {
		fmt.Fprintf(&b, "🎂 Aniversariantes (%s): %d\n", a.now().Format("02/01"), len(birthdays))
		for _, p := range birthdays {
			fmt.Fprintf(&b, "• %s - %s - Tel: %s\n", p.Name, p.BirthDate, p.Phone)
		}
	}

	visitors, err := a.gateway.ListRecentVisitors(a.lookback)
	if err != nil {
		fmt.Fprintf(&b, "\n👥 Visitantes: erro: %v\n", err)
	} else {
		fmt.Fprintf(&b, "\n👥 Visitantes recentes (%d dias): %d\n", a.lookback, len(visitors))
		for _, v := range visitors {
			when := ""
			if v.VisitDate != nil {
				when = v.VisitDate.Format("02/01")
			}
			fmt.Fprintf(&b, "• %s - %s - Tel: %s\n", v.Name, when, v.Phone)
		}
	}

	events, err := a.gateway.ListUpcomingEvents(a.lookahead)
	if err != nil {
		fmt.Fprintf(&b, "\n📅 Eventos: erro: %v\n", err)
	} else {
		fmt.Fprintf(&b, "\n📅 Eventos próximos (%d dias): %d\n", a.lookahead, len(events))
		for _, e := range events {
			fmt.Fprintf(&b, "• %s - %s\n", e.Title, e.StartDate.Format("02/01"))
		}
	}

	return b.String()
}

func (a *AdminCommands) executeReply(ctx context.Context) string {
	if a.runNow == nil {
		return "❌ Execução manual não configurada."
	}
	if err := a.runNow(ctx); err != nil {
		log.Printf("menu: admin: run now: %v", err)
		return fmt.Sprintf("❌ Erro ao executar verificação diária: %v", err)
	}
	return "🔄 Verificação diária executada."
}
