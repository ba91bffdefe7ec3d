package bothandler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matchfound/matchfound/internal/database"
)

func extractCommand(text string) string {
	command := strings.TrimPrefix(strings.Fields(text)[0], "/")
	// strip the @botname suffix used in groups
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command)
}

func parseUserID(arg string) (int64, error) {
	return strconv.ParseInt(arg, 10, 64)
}

func parseInterests(text string) database.Interests {
	var interests database.Interests
	for _, part := range strings.Split(text, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag != "" && !interests.Contains(tag) {
			interests = append(interests, tag)
		}
	}
	return interests
}

func yearsSince(birthDate, now time.Time) int {
	years := now.Year() - birthDate.Year()
	if now.YearDay() < birthDate.YearDay() {
		years--
	}
	return years
}

func displayName(p *database.UserProfile) string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	if p.Username != nil {
		return "@" + *p.Username
	}
	return "Someone"
}

func contactLine(p *database.UserProfile) string {
	if p.Username != nil {
		return "@" + *p.Username
	}
	return displayName(p)
}

func tierLabel(priority int) string {
	switch priority {
	case database.PriorityArchetypeAndMBTI:
		return "⭐ Great match"
	case database.PriorityArchetypeOnly:
		return "Archetype match"
	case database.PriorityMBTIOnly:
		return "Personality match"
	default:
		return "Match"
	}
}

// renderMatchCard builds the browsing card shown during /find
func renderMatchCard(p *database.UserProfile, priority, score int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %d\n", displayName(p), p.Age(time.Now()))
	fmt.Fprintf(&b, "%s · compatibility %d\n", tierLabel(priority), score)
	b.WriteString(renderDetails(p))
	return b.String()
}

// renderProfileSummary builds the plain profile view used by /profile
// and /liked
func renderProfileSummary(p *database.UserProfile) string {
	var b strings.Builder
	name := displayName(p)
	if p.BirthDate != nil {
		fmt.Fprintf(&b, "%s, %d\n", name, p.Age(time.Now()))
	} else {
		fmt.Fprintf(&b, "%s\n", name)
	}
	b.WriteString(renderDetails(p))
	return b.String()
}

func renderDetails(p *database.UserProfile) string {
	var b strings.Builder
	if p.Bio != nil && *p.Bio != "" {
		fmt.Fprintf(&b, "\n%s\n", *p.Bio)
	}
	if p.Location != nil {
		fmt.Fprintf(&b, "\n📍 %s", *p.Location)
	}
	if p.Mood != nil {
		fmt.Fprintf(&b, "\n💭 Looking for: %s", *p.Mood)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "\n🏷 %s", strings.Join(p.Interests, ", "))
	}
	if p.Archetype != nil {
		fmt.Fprintf(&b, "\n🎭 %s", *p.Archetype)
	}
	if p.MBTI != nil {
		fmt.Fprintf(&b, "\n🧠 %s", *p.MBTI)
	}
	return b.String()
}
