// Package gemini implements the simulation.Responder interface using
// Google's Gemini API to answer surveys on behalf of simulated
// respondent personas.
package gemini
