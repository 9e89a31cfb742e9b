package pagbank

import (
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

// Application is a registered PagBank Connect application. The access token
// is the application-level public credential ("Pub ..." auth scheme) used
// only for the OAuth token endpoints, never for charging.
type Application struct {
	ID          string
	Title       string
	Environment enums.Environment
	AccessToken string
	// FeeTitle describes the receipt plan tied to the application.
	FeeTitle string
}

var applications = []Application{
	{
		ID:          "pagbank-demo-sandbox",
		Title:       "PagBank Sandbox",
		Environment: enums.EnvironmentSandbox,
		AccessToken: "PUB1A2B3C4D5E6F7G8H9I0JSANDBOX",
		FeeTitle:    "Sandbox testing",
	},
	{
		ID:          "pagbank-d14-production",
		Title:       "PagBank D+14",
		Environment: enums.EnvironmentProduction,
		AccessToken: "PUB9Z8Y7X6W5V4U3T2S1R0QD14PROD",
		FeeTitle:    "Receipt in 14 days",
	},
	{
		ID:          "pagbank-d30-production",
		Title:       "PagBank D+30",
		Environment: enums.EnvironmentProduction,
		AccessToken: "PUB5K4L3M2N1O0P9Q8R7S6TD30PROD",
		FeeTitle:    "Receipt in 30 days",
	},
	{
		ID:          "pagbank-negotiated-production",
		Title:       "PagBank Negotiated",
		Environment: enums.EnvironmentProduction,
		AccessToken: "PUB2F3G4H5I6J7K8L9M0N1ONEGPROD",
		FeeTitle:    "Negotiated fees",
	},
}

// FindApplication looks an application up by id.
func FindApplication(id string) (Application, bool) {
	for _, app := range applications {
		if app.ID == id {
			return app, true
		}
	}
	return Application{}, false
}

// ApplicationsFor lists the applications available in an environment.
func ApplicationsFor(env enums.Environment) []Application {
	var out []Application
	for _, app := range applications {
		if app.Environment == env {
			out = append(out, app)
		}
	}
	return out
}
