package itinerary

import (
	"fmt"
	"strings"

	"github.com/ternarybob/zola/internal/models"
)

const systemInstruction = `You are an experienced travel planner who writes personalised, day-by-day itineraries in Markdown.

Rules:
- Organise each day into Morning, Afternoon and Evening, allowing for travel time between stops.
- Recommend places to eat and drink (restaurants, cafes, bars, local spots).
- Choose activities and attractions that fit the requested mood and party size.
- Add practical local tips: best times to visit, booking advice, insider knowledge.
- Respect the budget when one is given.
- Use Markdown headings for days and bold labels for parts of the day.
- Output only the itinerary.

Layout for each day:

### Day N – <date>
**Morning:**
- stop (tip)

**Afternoon:**
- stop

**Evening:**
- stop
- optional nightlife or local experience`

// BuildPrompt renders the trip details of plan as the user message
func BuildPrompt(plan models.Plan) string {
	var b strings.Builder

	b.WriteString("Plan a trip with these details.\n\n")
	fmt.Fprintf(&b, "- Dates: %s\n", dateRange(plan))
	fmt.Fprintf(&b, "- Location: %s\n", orDefault(plan.Location, "surprise me"))
	fmt.Fprintf(&b, "- Number of people: %d\n", max(plan.NumPeople, 1))
	fmt.Fprintf(&b, "- Mood: %s\n", orDefault(string(plan.Mood), string(models.MoodRelaxing)))
	if budget := strings.TrimSpace(plan.Budget); budget != "" {
		fmt.Fprintf(&b, "- Budget: %s\n", budget)
	}

	ideas := ideasFrom(plan.Images)
	if len(ideas) > 0 {
		b.WriteString("\nInspiration the travellers pinned:\n")
		for _, idea := range ideas {
			fmt.Fprintf(&b, "- %s\n", idea)
		}
	}

	return strings.TrimSpace(b.String())
}

func dateRange(plan models.Plan) string {
	switch {
	case plan.DateFrom != nil && plan.DateTo != nil:
		if plan.DateFrom.Equal(plan.DateTo.Time) {
			return plan.DateFrom.String()
		}
		return fmt.Sprintf("%s to %s", plan.DateFrom, plan.DateTo)
	case plan.DateFrom != nil:
		return "from " + plan.DateFrom.String()
	case plan.DateTo != nil:
		return "until " + plan.DateTo.String()
	default:
		return "flexible"
	}
}

// ideasFrom returns the distinct, non-empty image descriptions in pin order
func ideasFrom(images []models.Image) []string {
	seen := make(map[string]bool, len(images))
	ideas := make([]string, 0, len(images))
	for _, img := range images {
		idea := strings.TrimSpace(img.Idea())
		key := strings.ToLower(idea)
		if idea == "" || seen[key] {
			continue
		}
		seen[key] = true
		ideas = append(ideas, idea)
	}
	return ideas
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// PlaceQueries returns the place lookups made for a location
func PlaceQueries(location string) []string {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil
	}
	return []string{
		location + " attractions",
		location + " restaurants",
		location + " hotels",
	}
}
