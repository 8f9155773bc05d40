// Package trivia supplies questions for Decoy's Dilemma. The primary
// source is the Open Trivia Database; a built-in question list covers
// outages so a funded game never dies on a network error.
package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"chat-games-bot/internal/model"
)

const openTDBURL = "https://opentdb.com/api.php?amount=1&type=multiple"

// Client fetches trivia questions.
type Client struct {
	http     *http.Client
	fallback []model.Question
	rng      *rand.Rand
}

// New returns a Client with a 10 second request timeout.
func New() *Client {
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		fallback: builtinQuestions,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question      string `json:"question"`
		CorrectAnswer string `json:"correct_answer"`
	} `json:"results"`
}

// FetchQuestion asks Open Trivia DB for one question and falls back to
// the built-in list on any failure.
func (c *Client) FetchQuestion(ctx context.Context) (model.Question, error) {
	q, err := c.fetchRemote(ctx)
	if err == nil {
		return q, nil
	}
	log.Warn().Err(err).Msg("Trivia fetch failed, using built-in question")

	if len(c.fallback) == 0 {
		return model.Question{}, fmt.Errorf("trivia: no question available: %w", err)
	}
	return c.fallback[c.rng.Intn(len(c.fallback))], nil
}

func (c *Client) fetchRemote(ctx context.Context) (model.Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openTDBURL, nil)
	if err != nil {
		return model.Question{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Question{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Question{}, fmt.Errorf("trivia: unexpected status %d", resp.StatusCode)
	}

	var body openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Question{}, fmt.Errorf("trivia: decode response: %w", err)
	}
	if body.ResponseCode != 0 || len(body.Results) == 0 {
		return model.Question{}, fmt.Errorf("trivia: response code %d with %d results",
			body.ResponseCode, len(body.Results))
	}

	r := body.Results[0]
	return model.Question{
		Text:   html.UnescapeString(r.Question),
		Answer: html.UnescapeString(r.CorrectAnswer),
	}, nil
}

var builtinQuestions = []model.Question{
	{Text: "What is the largest planet in our solar system?", Answer: "Jupiter"},
	{Text: "Which element has the chemical symbol 'Au'?", Answer: "Gold"},
	{Text: "What is the capital city of Australia?", Answer: "Canberra"},
	{Text: "How many hearts does an octopus have?", Answer: "Three"},
	{Text: "What year did the first man walk on the moon?", Answer: "1969"},
	{Text: "Which country invented the paper?", Answer: "China"},
	{Text: "What is the longest river in the world?", Answer: "The Nile"},
	{Text: "Which instrument has 88 keys?", Answer: "Piano"},
	{Text: "What is the smallest prime number?", Answer: "2"},
	{Text: "Which ocean is the deepest?", Answer: "Pacific"},
}
