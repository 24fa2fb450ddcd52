// README: Demo; plans one trip against Gemini with in-memory history and prints the answer and token usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wayfarer/internal/ai"
	"wayfarer/internal/modules/examples"
	"wayfarer/internal/modules/history"
	"wayfarer/internal/service"
)

func main() {
	dest := flag.String("destination", "Kyoto", "destination to plan")
	dates := flag.String("dates", "2025-10-01 to 2025-10-07", "travel dates")
	prefs := flag.String("preferences", "temples, food, walking", "comma separated preferences")
	seed := flag.Bool("seed", true, "record a past trip first so the prompt carries an example")
	flag.Parse()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable not set")
	}

	ctx := context.Background()
	provider, err := ai.NewGeminiProvider(ctx, apiKey, ai.ModelOptions{Temperature: 0.3, MaxOutputTokens: 2048})
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	defer provider.Close()

	scorer, err := examples.NewScorer(examples.BalancedWeights)
	if err != nil {
		log.Fatal(err)
	}
	cache, err := examples.NewCache(examples.CacheConfig{})
	if err != nil {
		log.Fatal(err)
	}
	assistant, err := service.NewTravelAssistant(service.Deps{
		LLM:      provider,
		History:  history.NewService(history.NewMemoryStore(), nil, nil, nil),
		Selector: examples.NewSelector(scorer, examples.DefaultSelectorConfig()),
		Cache:    cache,
	}, service.Options{AITimeout: 90 * time.Second})
	if err != nil {
		log.Fatal(err)
	}

	const user = "demo_user"
	if *seed {
		rating := 4.5
		_, err := assistant.RecordTrip(ctx, user, history.TripInput{
			Destination:   "Osaka",
			Dates:         "2024-04-02 to 2024-04-08",
			Preferences:   []string{"food", "temples"},
			Rating:        &rating,
			FlightSummary: "Direct overnight flight, aisle seat",
			HotelSummary:  "Small ryokan near Namba",
			Highlights:    []string{"Kuromon market breakfast", "Day trip to Nara"},
		})
		if err != nil {
			log.Fatalf("seed trip: %v", err)
		}
	}

	fmt.Printf("Planning %s (%s) for %q\n\n", *dest, *dates, *prefs)
	resp, err := assistant.Plan(ctx, service.TravelRequest{
		Destination: *dest,
		TravelDates: *dates,
		Preferences: *prefs,
		UserID:      user,
	})
	if err != nil {
		log.Fatalf("Error planning trip: %v", err)
	}

	fmt.Printf("== Flights ==\n%s\n\n", resp.FlightRecommendations)
	fmt.Printf("== Hotels ==\n%s\n\n", resp.HotelRecommendations)
	fmt.Printf("== Itinerary ==\n%s\n\n", resp.Itinerary)
	fmt.Printf("Tokens: %d in / %d out, estimated cost $%.6f, %d ms\n",
		resp.TokenUsage.TotalInputTokens, resp.TokenUsage.TotalOutputTokens,
		resp.TokenUsage.TotalCostEstimate, resp.LatencyMs)
}
