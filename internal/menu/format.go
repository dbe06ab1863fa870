package menu

import (
	"fmt"
	"strings"

	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/models"
)

// User-facing texts are Portuguese; the engine serves Brazilian congregations.

const unavailableLine = "❌ Informações da igreja não disponíveis no momento."

// mainMenu lists the commands accepted in PhaseSelected.
func mainMenu() string {
	return `🤖 Como posso ajudar ?

* Palavra do dia - Mostra a palavra do dia da sua igreja
* Dias de culto - Mostra os dias e horários de culto
* Endereço - Mostra o endereço da sua igreja
* Contato - Informações de contato da sua igreja
* Ajuda - Mostra esta lista de comandos

📝 Como usar: Digite exatamente o nome do comando (ex: "Palavra do dia")
💡 Digite "Menu" para ver estas opções novamente`
}

func notRegisteredText() string {
	return `❌ Desculpe, seu número não está cadastrado em nosso sistema.

Para se cadastrar, entre em contato com a administração da sua igreja.`
}

func noTenantText() string {
	return `❌ Não encontramos igrejas vinculadas ao seu cadastro.

Entre em contato com a administração para verificar sua situação.`
}

func temporarilyUnavailableText() string {
	return "❌ Ocorreu um erro ao buscar suas informações. Tente novamente em alguns instantes."
}

func greetingText(personName, tenantName string) string {
	return fmt.Sprintf("Olá, %s! 👋\n\n🏛️ *%s*\n\n%s", personName, tenantName, mainMenu())
}

func selectionPromptText(personName string, candidates []directory.Membership) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s! 👋\n\n", personName)
	b.WriteString("Você faz parte de múltiplas igrejas. Por favor, selecione de qual igreja você deseja consultar informações:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.TenantName)
	}
	b.WriteString("\n📝 Digite o número da igreja desejada.")
	return b.String()
}

func invalidSelectionText(max int) string {
	return fmt.Sprintf("❌ Seleção inválida.\n\nDigite um número entre 1 e %d.", max)
}

func tenantMenuText(tenantName string) string {
	return fmt.Sprintf("🏛️ *%s*\n\n%s", tenantName, mainMenu())
}

func unknownCommandText(tenantName, raw string, multi bool) string {
	text := fmt.Sprintf("%s\n\n⚠️ Comando não reconhecido: %q\nDigite exatamente um dos comandos listados acima.", tenantMenuText(tenantName), raw)
	if multi {
		text += "\n\n" + switchHint
	}
	return text
}

func onlyOneTenantText(tenantName string) string {
	return fmt.Sprintf("🏛️ *%s*\n\nVocê faz parte apenas desta igreja.\n\n%s", tenantName, mainMenu())
}

const switchHint = `💡 Digite "Trocar igreja" para selecionar outra igreja.`

// footer is appended to every command response.
func footer(multi bool) string {
	text := "\nPara ver o menu novamente, digite \"Menu\"."
	if multi {
		text += "\n" + switchHint
	}
	return text
}

// noProfileText replies when the bound tenant has no profile record at all.
func noProfileText(multi bool) string {
	return unavailableLine + "\n" + footer(multi)
}

func wordOfDayText(t *models.Tenant, tenantName string, multi bool) string {
	if t == nil {
		return noProfileText(multi)
	}
	var b strings.Builder
	b.WriteString("📖 *Palavra do Dia*\n")
	fmt.Fprintf(&b, "🏛️ *%s*\n\n", tenantName)
	switch {
	case t.PhraseOfDay != "":
		b.WriteString(t.PhraseOfDay + "\n")
	case t.Phrase != "":
		// Standing phrase as fallback for tenants without a daily one.
		b.WriteString(t.Phrase + "\n")
	default:
		b.WriteString("❌ Palavra do dia não disponível no momento.\n")
	}
	b.WriteString(footer(multi))
	return b.String()
}

// weekdayOrder fixes the rendering order of the worship schedule.
var weekdayOrder = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var weekdayNames = map[string]string{
	"sunday":    "Domingo",
	"monday":    "Segunda-feira",
	"tuesday":   "Terça-feira",
	"wednesday": "Quarta-feira",
	"thursday":  "Quinta-feira",
	"friday":    "Sexta-feira",
	"saturday":  "Sábado",
}

func serviceDaysText(t *models.Tenant, tenantName string, multi bool) string {
	if t == nil {
		return noProfileText(multi)
	}
	var b strings.Builder
	b.WriteString("📅 *Dias de Culto*\n")
	fmt.Fprintf(&b, "🏛️ *%s*\n\n", tenantName)

	schedule := t.Schedule()
	hasAny := false
	for _, day := range weekdayOrder {
		services := schedule[day]
		if len(services) == 0 {
			continue
		}
		hasAny = true
		fmt.Fprintf(&b, "🗓️ *%s:*\n", weekdayNames[day])
		for _, svc := range services {
			fmt.Fprintf(&b, "• %s - %s", svc.Name, svc.Time)
			if svc.Minister != "" {
				fmt.Fprintf(&b, " (%s)", svc.Minister)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if !hasAny {
		b.WriteString("❌ Dias de culto não disponíveis no momento.\n\n")
	}
	if t.Address != "" {
		fmt.Fprintf(&b, "📍 *Endereço:* %s\n\n", t.Address)
	}
	b.WriteString(footer(multi))
	return b.String()
}

func addressText(t *models.Tenant, tenantName string, multi bool) string {
	if t == nil {
		return noProfileText(multi)
	}
	var b strings.Builder
	b.WriteString("📍 *Endereço*\n")
	fmt.Fprintf(&b, "🏛️ *%s*\n\n", tenantName)
	if t.Address != "" {
		b.WriteString(t.Address + "\n")
		if t.CEP != "" {
			fmt.Fprintf(&b, "CEP: %s\n", t.CEP)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("❌ Endereço não disponível no momento.\n\n")
	}
	b.WriteString(footer(multi))
	return b.String()
}

func contactText(t *models.Tenant, tenantName string, multi bool) string {
	if t == nil {
		return noProfileText(multi)
	}
	var b strings.Builder
	b.WriteString("📞 *Contato*\n")
	fmt.Fprintf(&b, "🏛️ *%s*\n\n", tenantName)
	if t.Phone != "" {
		fmt.Fprintf(&b, "📱 *Telefone:* %s\n", t.Phone)
	}
	if t.Email != "" {
		fmt.Fprintf(&b, "📧 *E-mail:* %s\n", t.Email)
	}
	if t.PixKey != "" {
		fmt.Fprintf(&b, "💰 *PIX:* %s\n", t.PixKey)
	}
	if t.Phone == "" && t.Email == "" && t.PixKey == "" {
		b.WriteString("❌ Informações de contato não disponíveis no momento.\n")
	}
	if t.Phrase != "" {
		fmt.Fprintf(&b, "\n💬 *Mensagem da Igreja:*\n%s\n", t.Phrase)
	}
	b.WriteString(footer(multi))
	return b.String()
}
