package menu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/models"
	"github.com/zulandar/shepherd/internal/transport"
)

// ---------------------------------------------------------------------------
// Stub gateway
// ---------------------------------------------------------------------------

type stubGateway struct {
	people      map[string]*directory.Person
	memberships map[string][]directory.Membership
	tenants     map[string]*models.Tenant
	err         error // when set, every lookup fails
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		people:      make(map[string]*directory.Person),
		memberships: make(map[string][]directory.Membership),
		tenants:     make(map[string]*models.Tenant),
	}
}

func (g *stubGateway) FindIdentityRecord(identity string) (*directory.Person, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.people[identity], nil
}

func (g *stubGateway) ListTenantsForIdentity(identity string) ([]directory.Membership, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.memberships[identity], nil
}

func (g *stubGateway) GetTenantProfile(tenantID string) (*models.Tenant, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.tenants[tenantID], nil
}

func (g *stubGateway) ListMembers(string) ([]directory.Person, error)       { return nil, nil }
func (g *stubGateway) ListVisitors(string) ([]directory.Person, error)      { return nil, nil }
func (g *stubGateway) ListEvents(string) ([]models.Event, error)            { return nil, nil }
func (g *stubGateway) ListAllBirthdaysToday() ([]directory.Person, error)   { return nil, nil }
func (g *stubGateway) ListRecentVisitors(int) ([]directory.Person, error)   { return nil, nil }
func (g *stubGateway) ListUpcomingEvents(int) ([]models.Event, error)       { return nil, nil }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const testIdentity = "557199121838"

func testRouter(t *testing.T, gw directory.Gateway) (*Router, *transport.MockAdapter, *StateStore) {
	t.Helper()
	adapter := transport.NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock: %v", err)
	}
	states := NewStateStore()
	t.Cleanup(states.Close)
	router, err := NewRouter(RouterOpts{
		Gateway: gw,
		Adapter: adapter,
		States:  states,
		Out:     &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return router, adapter, states
}

func sendText(r *Router, text string) {
	r.Handle(context.Background(), transport.InboundMessage{Sender: testIdentity, Text: text})
}

func lastReply(t *testing.T, adapter *transport.MockAdapter) string {
	t.Helper()
	msg, ok := adapter.LastSent()
	if !ok {
		t.Fatal("no reply sent")
	}
	return msg.Text
}

func registerSingleTenant(gw *stubGateway) {
	gw.people[testIdentity] = &directory.Person{Name: "Maria", Phone: testIdentity}
	gw.memberships[testIdentity] = []directory.Membership{
		{TenantID: "central", TenantName: "Igreja Central"},
	}
	gw.tenants["central"] = &models.Tenant{
		ID: "central", Name: "Igreja Central",
		PhraseOfDay: "O Senhor é o meu pastor.",
		Address:     "Rua das Flores, 100",
		CEP:         "40000-000",
		Phone:       "(71) 3000-1000",
	}
}

func registerTwoTenants(gw *stubGateway) {
	registerSingleTenant(gw)
	gw.memberships[testIdentity] = append(gw.memberships[testIdentity],
		directory.Membership{TenantID: "norte", TenantName: "Igreja Norte"})
	gw.tenants["norte"] = &models.Tenant{ID: "norte", Name: "Igreja Norte"}
}

// ---------------------------------------------------------------------------
// Initial flow
// ---------------------------------------------------------------------------

func TestRouter_UnregisteredIdentity_NoStateAndRetries(t *testing.T) {
	gw := newStubGateway()
	router, adapter, states := testRouter(t, gw)

	sendText(router, "oi")
	if !strings.Contains(lastReply(t, adapter), "não está cadastrado") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
	if states.Peek(testIdentity) != nil {
		t.Error("state created for unregistered identity")
	}

	// Registration happens after the first message; the next message must
	// succeed without any reset.
	registerSingleTenant(gw)
	sendText(router, "oi")
	st := states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseSelected {
		t.Fatalf("state = %+v, want selected", st)
	}
}

func TestRouter_NoTenantLinked(t *testing.T) {
	gw := newStubGateway()
	gw.people[testIdentity] = &directory.Person{Name: "Maria"}
	router, adapter, states := testRouter(t, gw)

	sendText(router, "oi")
	if !strings.Contains(lastReply(t, adapter), "Não encontramos igrejas") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
	if states.Peek(testIdentity) != nil {
		t.Error("state created without tenant link")
	}
}

func TestRouter_StoreUnavailable(t *testing.T) {
	gw := newStubGateway()
	gw.err = errors.New("store down")
	router, adapter, states := testRouter(t, gw)

	sendText(router, "oi")
	if !strings.Contains(lastReply(t, adapter), "Tente novamente") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
	if states.Peek(testIdentity) != nil {
		t.Error("state created while store unavailable")
	}
}

func TestRouter_SingleTenant_SkipsSelection(t *testing.T) {
	gw := newStubGateway()
	registerSingleTenant(gw)
	router, adapter, states := testRouter(t, gw)

	sendText(router, "oi")

	st := states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseSelected {
		t.Fatalf("state = %+v, want selected without selection phase", st)
	}
	if st.TenantID != "central" || st.MultiTenant {
		t.Errorf("state = %+v", st)
	}
	reply := lastReply(t, adapter)
	if !strings.Contains(reply, "Olá, Maria") || !strings.Contains(reply, "Igreja Central") {
		t.Errorf("reply = %q", reply)
	}
}

// ---------------------------------------------------------------------------
// Multi-tenant selection
// ---------------------------------------------------------------------------

func TestRouter_MultiTenant_SelectionFlow(t *testing.T) {
	gw := newStubGateway()
	registerTwoTenants(gw)
	router, adapter, states := testRouter(t, gw)

	sendText(router, "oi")
	st := states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseAwaitingSelection {
		t.Fatalf("state = %+v, want awaiting selection", st)
	}
	if !strings.Contains(lastReply(t, adapter), "1. Igreja Central") {
		t.Errorf("prompt = %q", lastReply(t, adapter))
	}

	// Out-of-range index re-prompts without changing state.
	sendText(router, "9")
	if !strings.Contains(lastReply(t, adapter), "entre 1 e 2") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
	st = states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseAwaitingSelection {
		t.Fatalf("state after bad index = %+v", st)
	}

	// Non-numeric input re-prompts too.
	sendText(router, "primeira")
	st = states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseAwaitingSelection {
		t.Fatalf("state after non-numeric = %+v", st)
	}

	// Valid index binds the first candidate.
	sendText(router, "1")
	st = states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseSelected || st.TenantID != "central" {
		t.Fatalf("state = %+v, want central selected", st)
	}
	if !st.MultiTenant {
		t.Error("MultiTenant not recorded at selection time")
	}

	// Any unrelated text stays in the selected phase.
	sendText(router, "qualquer coisa")
	st = states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseSelected || st.TenantID != "central" {
		t.Fatalf("state after unknown command = %+v", st)
	}
	if !strings.Contains(lastReply(t, adapter), "Comando não reconhecido") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
}

// ---------------------------------------------------------------------------
// Menu commands
// ---------------------------------------------------------------------------

func TestRouter_Commands(t *testing.T) {
	gw := newStubGateway()
	registerSingleTenant(gw)
	router, adapter, _ := testRouter(t, gw)
	sendText(router, "oi")

	tests := []struct {
		command string
		want    []string
	}{
		{"palavra do dia", []string{"Palavra do Dia", "O Senhor é o meu pastor."}},
		{"Palavra do Dia", []string{"O Senhor é o meu pastor."}}, // case-insensitive
		{"endereço", []string{"Rua das Flores, 100", "CEP: 40000-000"}},
		{"endereco", []string{"Rua das Flores, 100"}}, // unaccented spelling
		{"contato", []string{"(71) 3000-1000"}},
		{"menu", []string{"Como posso ajudar"}},
		{"ajuda", []string{"Como posso ajudar"}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sendText(router, tt.command)
			reply := lastReply(t, adapter)
			for _, want := range tt.want {
				if !strings.Contains(reply, want) {
					t.Errorf("reply to %q missing %q:\n%s", tt.command, want, reply)
				}
			}
		})
	}
}

func TestRouter_Commands_DegradeOnMissingFields(t *testing.T) {
	gw := newStubGateway()
	gw.people[testIdentity] = &directory.Person{Name: "Maria"}
	gw.memberships[testIdentity] = []directory.Membership{
		{TenantID: "vazia", TenantName: "Igreja Vazia"},
	}
	gw.tenants["vazia"] = &models.Tenant{ID: "vazia", Name: "Igreja Vazia"}
	router, adapter, _ := testRouter(t, gw)
	sendText(router, "oi")

	tests := []struct {
		command string
		want    string
	}{
		{"palavra do dia", "Palavra do dia não disponível"},
		{"dias de culto", "Dias de culto não disponíveis"},
		{"endereço", "Endereço não disponível"},
		{"contato", "Informações de contato não disponíveis"},
	}
	for _, tt := range tests {
		sendText(router, tt.command)
		if !strings.Contains(lastReply(t, adapter), tt.want) {
			t.Errorf("reply to %q missing %q:\n%s", tt.command, tt.want, lastReply(t, adapter))
		}
	}
}

func TestRouter_Commands_MissingProfileRecord(t *testing.T) {
	gw := newStubGateway()
	gw.people[testIdentity] = &directory.Person{Name: "Maria"}
	gw.memberships[testIdentity] = []directory.Membership{
		{TenantID: "fantasma", TenantName: "Igreja Fantasma"},
	}
	// No tenants entry at all: the profile lookup misses.
	router, adapter, _ := testRouter(t, gw)
	sendText(router, "oi")

	sendText(router, "palavra do dia")
	if !strings.Contains(lastReply(t, adapter), "não disponíveis no momento") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
}

func TestRouter_ServiceDays(t *testing.T) {
	gw := newStubGateway()
	registerSingleTenant(gw)
	gw.tenants["central"].WorshipSchedule = `{"sunday":[{"name":"Culto da Família","time":"18:00","minister":"Pr. João"}],"wednesday":[{"name":"Oração","time":"19:30"}]}`
	router, adapter, _ := testRouter(t, gw)
	sendText(router, "oi")

	sendText(router, "dias de culto")
	reply := lastReply(t, adapter)
	for _, want := range []string{"Domingo", "Culto da Família - 18:00 (Pr. João)", "Quarta-feira", "Oração - 19:30"} {
		if !strings.Contains(reply, want) {
			t.Errorf("reply missing %q:\n%s", want, reply)
		}
	}
}

// ---------------------------------------------------------------------------
// Switch tenant
// ---------------------------------------------------------------------------

func TestRouter_SwitchTenant_SingleMembership(t *testing.T) {
	gw := newStubGateway()
	registerSingleTenant(gw)
	router, adapter, states := testRouter(t, gw)
	sendText(router, "oi")

	sendText(router, "trocar igreja")
	if !strings.Contains(lastReply(t, adapter), "apenas desta igreja") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
	st := states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseSelected || st.TenantID != "central" {
		t.Fatalf("state = %+v, want unchanged", st)
	}
}

func TestRouter_SwitchTenant_ReentersSelection(t *testing.T) {
	gw := newStubGateway()
	registerTwoTenants(gw)
	router, adapter, states := testRouter(t, gw)
	sendText(router, "oi")
	sendText(router, "2")

	st := states.Peek(testIdentity)
	if st == nil || st.TenantID != "norte" {
		t.Fatalf("state = %+v, want norte selected", st)
	}

	// Switching re-runs the initial flow in the same call: one reply, back
	// to the selection prompt.
	before := adapter.SentCount()
	sendText(router, "trocar igreja")
	if adapter.SentCount() != before+1 {
		t.Errorf("sent %d replies, want 1", adapter.SentCount()-before)
	}
	st = states.Peek(testIdentity)
	if st == nil || st.Phase != PhaseAwaitingSelection {
		t.Fatalf("state = %+v, want awaiting selection again", st)
	}
	if !strings.Contains(lastReply(t, adapter), "múltiplas igrejas") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
}

// ---------------------------------------------------------------------------
// Operator commands
// ---------------------------------------------------------------------------

func TestRouter_AdminCommands_GatedByIdentity(t *testing.T) {
	gw := newStubGateway()
	registerSingleTenant(gw)

	adapter := transport.NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock: %v", err)
	}
	states := NewStateStore()
	t.Cleanup(states.Close)

	ran := false
	admin, err := NewAdminCommands(AdminCommandsOpts{
		Gateway: gw,
		RunNow:  func(context.Context) error { ran = true; return nil },
		Status:  func() string { return "agendador ocioso" },
	})
	if err != nil {
		t.Fatalf("NewAdminCommands: %v", err)
	}
	router, err := NewRouter(RouterOpts{
		Gateway:    gw,
		Adapter:    adapter,
		States:     states,
		Admin:      admin,
		AdminPhone: "5571900000000",
		Out:        &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	// From the admin identity, "executar" triggers the run.
	router.Handle(context.Background(), transport.InboundMessage{Sender: "5571900000000", Text: "executar"})
	if !ran {
		t.Error("executar did not trigger the run")
	}

	// From a regular member, "status" is not an operator command; it falls
	// through to the menu flow (unknown command).
	sendText(router, "oi")
	sendText(router, "status")
	if !strings.Contains(lastReply(t, adapter), "Comando não reconhecido") {
		t.Errorf("reply = %q", lastReply(t, adapter))
	}
}

func TestAdminCommands_Execute(t *testing.T) {
	gw := newStubGateway()
	admin, err := NewAdminCommands(AdminCommandsOpts{
		Gateway: gw,
		Status:  func() string { return "agendador ocioso" },
	})
	if err != nil {
		t.Fatalf("NewAdminCommands: %v", err)
	}

	if reply, handled := admin.Execute(context.Background(), "admin"); !handled || !strings.Contains(reply, "Menu Administrativo") {
		t.Errorf("admin reply = %q, handled=%v", reply, handled)
	}
	if reply, handled := admin.Execute(context.Background(), "STATUS"); !handled || !strings.Contains(reply, "agendador ocioso") {
		t.Errorf("status reply = %q, handled=%v", reply, handled)
	}
	if reply, handled := admin.Execute(context.Background(), "debug"); !handled || !strings.Contains(reply, "Candidatos de hoje") {
		t.Errorf("debug reply = %q, handled=%v", reply, handled)
	}
	if _, handled := admin.Execute(context.Background(), "palavra do dia"); handled {
		t.Error("menu command wrongly handled as operator command")
	}
	if reply, handled := admin.Execute(context.Background(), "executar"); !handled || !strings.Contains(reply, "não configurada") {
		t.Errorf("executar reply = %q, handled=%v", reply, handled)
	}
}
