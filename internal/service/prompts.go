// README: Prompt templates (flight, hotel, itinerary) and generic fallback answers.
package service

import (
	"bytes"
	"fmt"
	"text/template"
)

// Component names one of the three parallel generations.
type Component string

const (
	ComponentFlight    Component = "flight"
	ComponentHotel     Component = "hotel"
	ComponentItinerary Component = "itinerary"
)

var components = []Component{ComponentFlight, ComponentHotel, ComponentItinerary}

type promptData struct {
	Destination string
	TravelDates string
	Preferences string
	Examples    string
}

const flightPrompt = `You are an expert flight booking specialist with deep knowledge of airlines, routes, and pricing strategies.

{{.Examples}}

USER REQUEST:
Destination: {{.Destination}}
Travel Dates: {{.TravelDates}}
Preferences: {{.Preferences}}

TASK: Provide comprehensive flight recommendations including:
- Recommended airlines and specific flight options
- Direct vs connecting flight comparisons
- Class options (economy, premium economy, business) with pricing estimates
- Best departure/arrival times considering user preferences
- Booking strategies and tips (best time to book, flexible dates savings)
- Baggage policies and additional fees to consider

Provide actionable flight recommendations:`

const hotelPrompt = `You are an expert hotel booking specialist with extensive knowledge of accommodations worldwide.

{{.Examples}}

USER REQUEST:
Destination: {{.Destination}}
Travel Dates: {{.TravelDates}}
Preferences: {{.Preferences}}

TASK: Provide detailed hotel recommendations including:
- 3-5 specific hotel names with exact locations/neighborhoods
- Hotel categories (budget, mid-range, luxury, boutique) based on preferences
- Key amenities (breakfast, WiFi, pool, gym, spa, etc.)
- Neighborhood descriptions and proximity to attractions
- Estimated pricing per night in local currency and USD
- Booking tips and best platforms to use
- Alternative accommodation options (Airbnb, hostels, etc.) if relevant

Provide specific hotel recommendations:`

const itineraryPrompt = `You are an expert travel planner specializing in creating detailed, personalized day-by-day itineraries.

{{.Examples}}

USER REQUEST:
Destination: {{.Destination}}
Travel Dates: {{.TravelDates}}
Preferences: {{.Preferences}}

TASK: Create a comprehensive day-by-day itinerary including:
- Daily schedule with morning, afternoon, and evening activities
- Specific attractions, museums, restaurants, and experiences
- Realistic timing with travel time between locations
- Meal recommendations (breakfast, lunch, dinner) aligned with preferences
- Cultural experiences and local insider tips
- Flexible alternatives for weather or personal preference changes
- Budget estimates for activities and dining
- Transportation tips for each day

Provide a detailed day-by-day itinerary:`

var templates = map[Component]*template.Template{
	ComponentFlight:    template.Must(template.New("flight").Parse(flightPrompt)),
	ComponentHotel:     template.Must(template.New("hotel").Parse(hotelPrompt)),
	ComponentItinerary: template.Must(template.New("itinerary").Parse(itineraryPrompt)),
}

func renderPrompt(c Component, data promptData) (string, error) {
	tmpl, ok := templates[c]
	if !ok {
		return "", fmt.Errorf("unknown component %q", c)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", c, err)
	}
	return buf.String(), nil
}

// fallbackText is served when the model refuses or returns nothing.
func fallbackText(c Component, destination string) string {
	switch c {
	case ComponentFlight:
		return fmt.Sprintf(`Based on your travel plans to %s, here are general flight recommendations:

1. Book in advance: typically 2-3 months ahead for the best prices.
2. Compare airlines: check both major carriers and budget airlines.
3. Consider connections: direct flights save time but may cost more.
4. Stay flexible: shifting dates by a day or two can save 20-40%%.
5. Use comparison tools such as Google Flights, Skyscanner or Kayak and set fare alerts.`, destination)
	case ComponentHotel:
		return fmt.Sprintf(`Here are hotel recommendations for %s:

1. Location: stay near public transportation or the main attractions.
2. Read recent reviews, focusing on the last 3-6 months.
3. Compare prices on the hotel website, booking sites and aggregators.
4. Prefer refundable rates when plans may change.
5. Consider alternatives such as boutique hotels, apartments or hostels.`, destination)
	default:
		return fmt.Sprintf(`Here's a general itinerary planning guide for %s:

Day 1-2: arrival and orientation. Settle in, take a walking tour and try the local cuisine.
Day 3-5: major attractions. Book skip-the-line tickets and balance sightseeing with rest.
Day 6-7: local experiences. Visit markets, take a cooking class or plan a day trip.

Leave time for spontaneity and make reservations for popular restaurants.`, destination)
	}
}
