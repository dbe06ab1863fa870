package campaign

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/models"
)

// runBirthdays greets everyone whose birth day and month match today.
func (s *Scheduler) runBirthdays(ctx context.Context) CampaignResult {
	result := CampaignResult{Campaign: "birthdays"}

	people, err := s.gateway.ListAllBirthdaysToday()
	if err != nil {
		result.Err = err.Error()
		fmt.Fprintf(s.out, "campaign: birthdays: pull failed: %v\n", err)
		return result
	}
	fmt.Fprintf(s.out, "campaign: birthdays: %d candidates\n", len(people))
	if len(people) == 0 {
		return result
	}

	_, result.Summary = s.dispatcher.Dispatch(ctx, people, birthdayMessage)
	return result
}

// runVisitors follows up with uncontacted visitors from the lookback window.
func (s *Scheduler) runVisitors(ctx context.Context) CampaignResult {
	result := CampaignResult{Campaign: "visitors"}

	people, err := s.gateway.ListRecentVisitors(s.lookback)
	if err != nil {
		result.Err = err.Error()
		fmt.Fprintf(s.out, "campaign: visitors: pull failed: %v\n", err)
		return result
	}
	fmt.Fprintf(s.out, "campaign: visitors: %d candidates\n", len(people))
	if len(people) == 0 {
		return result
	}

	_, result.Summary = s.dispatcher.Dispatch(ctx, people, visitorMessage)
	return result
}

// runEvents announces each upcoming event to the members of its tenant.
// Summaries are aggregated across events.
func (s *Scheduler) runEvents(ctx context.Context) CampaignResult {
	result := CampaignResult{Campaign: "events"}

	events, err := s.gateway.ListUpcomingEvents(s.lookahead)
	if err != nil {
		result.Err = err.Error()
		fmt.Fprintf(s.out, "campaign: events: pull failed: %v\n", err)
		return result
	}
	fmt.Fprintf(s.out, "campaign: events: %d upcoming\n", len(events))

	for _, event := range events {
		members, err := s.gateway.ListMembers(event.TenantID)
		if err != nil {
			// One tenant's pull failure does not block the other events.
			if result.Err != "" {
				result.Err += "; "
			}
			result.Err += fmt.Sprintf("%s: %v", event.Title, err)
			fmt.Fprintf(s.out, "campaign: events: members of %s: %v\n", event.TenantID, err)
			continue
		}
		if len(members) == 0 {
			continue
		}
		text := eventMessage(event)
		_, summary := s.dispatcher.Dispatch(ctx, members, func(directory.Person) string { return text })
		result.Summary.Total += summary.Total
		result.Summary.Sent += summary.Sent
		result.Summary.Failed += summary.Failed
		result.Summary.Skipped += summary.Skipped
	}
	return result
}

func birthdayMessage(p directory.Person) string {
	return fmt.Sprintf("🎂 Feliz aniversário, %s! 🎉\n\nQue Deus abençoe o seu novo ano de vida com muita saúde, paz e alegria!\n\n🙏 Um grande abraço da sua igreja!", p.Name)
}

func visitorMessage(p directory.Person) string {
	return fmt.Sprintf("Olá, %s! 👋\n\nFoi um prazer receber a sua visita! Esperamos vê-lo novamente em breve.\n\n🙏 Que Deus abençoe a sua semana!", p.Name)
}

// eventMessage renders one event announcement, shared by every recipient.
func eventMessage(e models.Event) string {
	var b strings.Builder
	b.WriteString("📅 *Evento Especial da Igreja!* 📅\n\n")
	fmt.Fprintf(&b, "🎉 *%s*\n\n", e.Title)

	description := e.Description
	if description == "" {
		description = "Evento especial da nossa igreja"
	}
	fmt.Fprintf(&b, "📝 *Descrição:* %s\n\n", description)
	fmt.Fprintf(&b, "📅 *Data de Início:* %s", e.StartDate.Format("02/01/2006"))
	if e.EndDate != nil && !e.EndDate.Equal(e.StartDate) {
		fmt.Fprintf(&b, "\n📅 *Data de Término:* %s", e.EndDate.Format("02/01/2006"))
	}
	if e.Price != "" {
		fmt.Fprintf(&b, "\n💰 *Investimento:* %s", e.Price)
	}
	if e.Contact != "" {
		fmt.Fprintf(&b, "\n📞 *Contato:* %s", e.Contact)
	}
	b.WriteString("\n\n✨ Não perca esta oportunidade de comunhão e crescimento espiritual!\n\n🙏 Esperamos você lá! Deus abençoe!")
	return b.String()
}
