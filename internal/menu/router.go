package menu

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/transport"
)

// Router drives the conversation state machine for inbound messages. State
// is keyed by sender identity and mutated under the identity's actor, so
// overlapping messages from one sender are processed in arrival order.
type Router struct {
	gateway    directory.Gateway
	adapter    transport.Adapter
	states     *StateStore
	admin      *AdminCommands
	adminPhone string
	out        io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Gateway directory.Gateway
	Adapter transport.Adapter
	States  *StateStore
	Admin   *AdminCommands // optional; enables operator chat commands
	// AdminPhone is the canonical identity allowed to run operator commands.
	AdminPhone string
	Out        io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("menu: router: gateway is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("menu: router: adapter is required")
	}
	if opts.States == nil {
		return nil, fmt.Errorf("menu: router: state store is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		gateway:    opts.Gateway,
		adapter:    opts.Adapter,
		states:     opts.States,
		admin:      opts.Admin,
		adminPhone: opts.AdminPhone,
		out:        out,
	}, nil
}

// Handle processes one inbound message. Routing paths:
//  1. Empty text → ignore
//  2. Operator command from the admin identity → admin handler
//  3. Everything else → the conversation state machine
func (r *Router) Handle(ctx context.Context, msg transport.InboundMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	fmt.Fprintf(r.out, "menu: router: recv [from=%s] %q\n", msg.Sender, truncate(text, 80))

	if r.admin != nil && r.adminPhone != "" && msg.Sender == r.adminPhone {
		if reply, handled := r.admin.Execute(ctx, text); handled {
			fmt.Fprintf(r.out, "menu: router: → operator command\n")
			r.send(ctx, msg.Sender, reply)
			return
		}
	}

	r.states.Do(msg.Sender, func(cur *State) *State {
		next, reply := r.step(cur, msg.Sender, text)
		if reply != "" {
			r.send(ctx, msg.Sender, reply)
		}
		return next
	})
}

// step advances the machine by one message and returns the next state plus
// the reply text. A nil next state clears the identity's slot.
func (r *Router) step(cur *State, identity, text string) (*State, string) {
	if cur == nil {
		return r.stepInitial(identity)
	}
	switch cur.Phase {
	case PhaseAwaitingSelection:
		return r.stepSelection(cur, text)
	case PhaseSelected:
		return r.stepCommand(cur, identity, text)
	default:
		return r.stepInitial(identity)
	}
}

// stepInitial looks the identity up and either binds the single tenant or
// asks which one to use. Unregistered identities get no state, so every
// later message re-attempts the lookup (late registration works).
func (r *Router) stepInitial(identity string) (*State, string) {
	person, err := r.gateway.FindIdentityRecord(identity)
	if err != nil {
		log.Printf("menu: router: identity lookup: %v", err)
		return nil, temporarilyUnavailableText()
	}
	if person == nil {
		return nil, notRegisteredText()
	}

	memberships, err := r.gateway.ListTenantsForIdentity(identity)
	if err != nil {
		log.Printf("menu: router: membership lookup: %v", err)
		return nil, temporarilyUnavailableText()
	}

	switch len(memberships) {
	case 0:
		return nil, noTenantText()
	case 1:
		st := r.bind(person.Name, memberships[0], false)
		return st, greetingText(person.Name, st.TenantName)
	default:
		return &State{
			Phase:      PhaseAwaitingSelection,
			PersonName: person.Name,
			Candidates: memberships,
		}, selectionPromptText(person.Name, memberships)
	}
}

// stepSelection parses the numeric choice. Anything out of [1, n] re-prompts
// without touching state.
func (r *Router) stepSelection(cur *State, text string) (*State, string) {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(cur.Candidates) {
		return cur, invalidSelectionText(len(cur.Candidates))
	}
	st := r.bind(cur.PersonName, cur.Candidates[n-1], len(cur.Candidates) > 1)
	return st, tenantMenuText(st.TenantName)
}

// stepCommand handles the fixed command set against the bound tenant.
func (r *Router) stepCommand(cur *State, identity, text string) (*State, string) {
	switch strings.ToLower(text) {
	case "palavra do dia":
		return cur, wordOfDayText(cur.Tenant, cur.TenantName, cur.MultiTenant)
	case "dias de culto":
		return cur, serviceDaysText(cur.Tenant, cur.TenantName, cur.MultiTenant)
	case "endereço", "endereco":
		return cur, addressText(cur.Tenant, cur.TenantName, cur.MultiTenant)
	case "contato":
		return cur, contactText(cur.Tenant, cur.TenantName, cur.MultiTenant)
	case "ajuda", "menu":
		return cur, tenantMenuText(cur.TenantName)
	case "trocar igreja":
		if !cur.MultiTenant {
			return cur, onlyOneTenantText(cur.TenantName)
		}
		// Discard state and re-enter the initial flow in the same call.
		return r.stepInitial(identity)
	default:
		return cur, unknownCommandText(cur.TenantName, text, cur.MultiTenant)
	}
}

// bind loads the tenant profile and builds the selected state. A missing
// profile is not an error; formatting degrades to "não disponível".
func (r *Router) bind(personName string, m directory.Membership, multi bool) *State {
	tenant, err := r.gateway.GetTenantProfile(m.TenantID)
	if err != nil {
		log.Printf("menu: router: tenant profile %s: %v", m.TenantID, err)
		tenant = nil
	}
	name := m.TenantName
	if tenant != nil && tenant.Name != "" {
		name = tenant.Name
	}
	return &State{
		Phase:       PhaseSelected,
		PersonName:  personName,
		TenantID:    m.TenantID,
		TenantName:  name,
		Tenant:      tenant,
		MultiTenant: multi,
	}
}

func (r *Router) send(ctx context.Context, to, text string) {
	if err := r.adapter.Send(ctx, transport.OutboundMessage{To: to, Text: text}); err != nil {
		log.Printf("menu: router: send reply: %v", err)
	}
}

// truncate returns s truncated to maxLen with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
