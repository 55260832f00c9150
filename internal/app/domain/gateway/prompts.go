package gateway

import (
	"fmt"
	"strings"
)

func cityPrompt(lat, lng float64) string {
	return fmt.Sprintf("Location: %f, %f. Reply with only the exact name of the city or municipality. No extra text.", lat, lng)
}

const museumFormat = `JSON format: an array of objects with name, city, country, lat, lng, description (%s, at most 10 words), website, type, imageTerm (two or three comma-separated search words), highlights (array of artwork titles).`

func nearbyMuseumsPrompt(lat, lng float64, count int, maxKm float64, language string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Find EXACTLY %d art museums physically located within a STRICT radius of at most %.0f km of the coordinates %f, %f.\n", count, maxKm, lat, lng)
	fmt.Fprintf(&sb, "CRITICAL: verify every distance before including a museum. Do NOT list museums further than %.0f km away.\n", maxKm)
	sb.WriteString("WEBSITE: only use real official websites or verified Wikipedia pages.\n")
	fmt.Fprintf(&sb, museumFormat, language)
	return sb.String()
}

func placeMuseumsPrompt(place string, count int, preferKm, maxKm float64, language string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "List EXACTLY %d art museums IN or DIRECTLY near (max %.0f km) %s.\n", count, preferKm, place)
	sb.WriteString("CRITICAL RULES:\n")
	fmt.Fprintf(&sb, "1. LOCATION: the museum MUST be physically in or right next to %s.\n", place)
	fmt.Fprintf(&sb, "2. DISTANCE: no results outside a radius of %.0f km from the city centre.\n", maxKm)
	sb.WriteString("3. WEBSITE: only use real official websites or verified Wikipedia pages.\n")
	fmt.Fprintf(&sb, museumFormat, language)
	return sb.String()
}

func activitiesPrompt(topic, location string, radiusKm, tips int, language string) string {
	if topic == "" {
		topic = "culture"
	}
	return fmt.Sprintf("TOPIC: %s. LOCATION CONTEXT: %s.\n"+
		"Give %d short tips (%s) for activities near the museums.\n"+
		"Stay strictly within a radius of %d km of %s. Verify locations.\n"+
		"Use ### for headers, - for bullet points and **bold** for names.",
		topic, location, tips, language, radiusKm, location)
}

func questionPrompt(question, language string) string {
	return fmt.Sprintf("Answer the question about museums or art factually and directly (%s): %s\n"+
		"If it concerns a specific region, verify the geographic accuracy.", language, question)
}
