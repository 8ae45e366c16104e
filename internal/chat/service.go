package chat

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/raidstats/raid-chat/internal/bus"
	"github.com/raidstats/raid-chat/internal/cache"
	"github.com/raidstats/raid-chat/internal/cleaner"
	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/llm"
	"github.com/raidstats/raid-chat/internal/monitor"
	"github.com/raidstats/raid-chat/internal/pkg/errors"
	"github.com/raidstats/raid-chat/internal/pkg/logger"
	"github.com/raidstats/raid-chat/internal/session"
)

const (
	// sentinelQuery stands in for a query the generator could not
	// produce; it is never sent to the executor.
	sentinelQuery = "SELECT 'Error: Could not generate SQL query. Please try again.' as error"

	// generationFailure is the in-band result for a failed generation.
	generationFailure = "Error: Could not generate SQL query. Please try again."

	// greetingQuery marks a turn answered by the greeting
	// short-circuit.
	greetingQuery = "GREETING_RESPONSE"

	// resultExcerptLimit caps how much result text a stored turn keeps.
	resultExcerptLimit = 500

	// operationName tags pipeline metrics.
	operationName = "chat_query"
)

// Service runs the request pipeline. All shared state (the two caches,
// the monitor) guards itself; Service adds no locking of its own. The
// admission gate bounds how many requests perform external calls at
// once; cache-served work never waits on it.
type Service struct {
	log         *logger.Logger
	queryCache  cache.Cache
	resultCache cache.Cache
	registry    *session.Registry
	monitor     *monitor.Monitor
	events      bus.Bus

	generator Generator
	executor  Executor
	formatter Formatter
	sanitizer Sanitizer

	suggester    *Suggester
	gate         *semaphore.Weighted
	contextTurns int
	schema       string
}

// Options wires the Service's collaborators.
type Options struct {
	Log         *logger.Logger
	QueryCache  cache.Cache
	ResultCache cache.Cache
	Registry    *session.Registry
	Monitor     *monitor.Monitor
	Events      bus.Bus

	Generator Generator
	Executor  Executor
	Formatter Formatter
	Sanitizer Sanitizer
	Suggester *Suggester

	// Schema is the table description included in generation prompts.
	Schema string

	Config config.ChatConfig
}

// NewService constructs a Service from explicit collaborators.
func NewService(opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logger.Default()
	}
	maxConcurrent := int64(opts.Config.MaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	contextTurns := opts.Config.ContextTurns
	if contextTurns <= 0 {
		contextTurns = 3
	}
	sanitizer := opts.Sanitizer
	if sanitizer == nil {
		sanitizer = cleaner.New()
	}
	suggester := opts.Suggester
	if suggester == nil {
		suggester = NewSuggester(nil)
	}

	return &Service{
		log:          log,
		queryCache:   opts.QueryCache,
		resultCache:  opts.ResultCache,
		registry:     opts.Registry,
		monitor:      opts.Monitor,
		events:       opts.Events,
		generator:    opts.Generator,
		executor:     opts.Executor,
		formatter:    opts.Formatter,
		sanitizer:    sanitizer,
		suggester:    suggester,
		gate:         semaphore.NewWeighted(maxConcurrent),
		contextTurns: contextTurns,
		schema:       opts.Schema,
	}
}

// Ask answers one question. It never returns an error: external
// failures degrade to a guided response tagged success=false in the
// metric but still delivered to the caller.
func (s *Service) Ask(ctx context.Context, req Request) Response {
	start := time.Now()
	question := strings.TrimSpace(req.Question)

	if IsGreeting(question) {
		return s.answerGreeting(req, question, start)
	}

	var mem *session.Memory
	if req.SessionID != "" {
		mem = s.registry.GetOrCreate(req.SessionID)
	}

	// Rewrite follow-ups before any caching so the rewritten question
	// is what gets cached, generated against, and stored in the turn.
	if mem != nil && mem.IsFollowUp(question) {
		rewritten := mem.RephraseFollowUp(question)
		if rewritten != question {
			s.log.WithSession(req.SessionID).Debug("rewrote follow-up", "from", question, "to", rewritten)
			question = rewritten
		}
	}

	// External-call phases run under the admission gate. Waiting here
	// is the design: requests queue for a slot instead of failing.
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return s.answerCancelled(req, question, start, err)
	}
	defer s.gate.Release(1)

	query, tokens, queryCached := s.resolveQuery(ctx, mem, question)

	result, resultCached := s.resolveResult(ctx, query)

	answer, suggestions, failure, formatTokens := s.assembleResponse(ctx, mem, question, query, result)
	tokens += formatTokens

	elapsed := time.Since(start)
	cacheHit := queryCached || resultCached

	if mem != nil {
		mem.AddTurn(session.Turn{
			Timestamp:    time.Now(),
			Question:     question,
			Query:        query,
			Result:       excerpt(result),
			Answer:       answer,
			TokensUsed:   tokens,
			ResponseTime: elapsed,
		})
	}

	s.monitor.Record(monitor.Metric{
		Operation:  operationName,
		Duration:   elapsed,
		TokensUsed: tokens,
		CacheHit:   cacheHit,
		Error:      failure,
	})

	s.publishOutcome(ctx, req.SessionID, question, query, failure)

	return Response{
		Success:     true,
		Answer:      answer,
		Query:       query,
		Elapsed:     elapsed,
		TokensUsed:  tokens,
		CacheHit:    cacheHit,
		SessionID:   req.SessionID,
		Suggestions: suggestions,
	}
}

// resolveQuery returns the query text for a question, consulting the
// query cache first. The generator is called at most once.
func (s *Service) resolveQuery(ctx context.Context, mem *session.Memory, question string) (query string, tokens int, cached bool) {
	if hit, ok := s.queryCache.Get(ctx, question); ok {
		return hit, 0, true
	}

	recentContext := ""
	if mem != nil {
		recentContext = mem.RecentContext(s.contextTurns)
	}
	prompt := llm.GenerationPrompt(cleaner.NormalizeQuestion(question), s.schema, recentContext)

	raw, tokens, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.log.WithError(err).Warn("query generation failed")
		return sentinelQuery, tokens, false
	}

	query = s.sanitizer.Clean(raw)

	// Cache under the original and the normalized phrasing so either
	// form of the question hits next time.
	s.queryCache.Set(ctx, question, query)
	if normalized := cleaner.NormalizeQuestion(question); normalized != question {
		s.queryCache.Set(ctx, normalized, query)
	}
	return query, tokens, false
}

// resolveResult returns the result text for a query, consulting the
// result cache first. The executor is called at most once; execution
// failures become descriptive in-band error strings, which are cached
// so a repeated bad query does not re-hit the database.
func (s *Service) resolveResult(ctx context.Context, query string) (result string, cached bool) {
	if query == sentinelQuery {
		return generationFailure, false
	}

	if hit, ok := s.resultCache.Get(ctx, query); ok {
		return hit, true
	}

	result, err := s.executor.Execute(ctx, query)
	if err != nil {
		result = describeExecutionFailure(err)
	} else {
		result = cleaner.NormalizeSkillsInResult(query, result)
	}

	s.resultCache.Set(ctx, query, result)
	return result, false
}

// assembleResponse turns a result into a user-facing answer. failure
// is non-empty when the pipeline degraded. The formatter is called at
// most once, and only on the success path.
func (s *Service) assembleResponse(ctx context.Context, mem *session.Memory, question, query, result string) (answer string, suggestions []string, failure string, tokens int) {
	switch {
	case strings.HasPrefix(result, "Error:"):
		var b strings.Builder
		b.WriteString("I couldn't complete that request due to a query or schema issue.\n")
		b.WriteString("Details: " + result + "\n\n")
		b.WriteString("Try adjusting your question. Here are some alternatives:\n")
		for _, alt := range errorSuggestions {
			b.WriteString("- " + alt + "\n")
		}
		return b.String(), errorSuggestions, result, 0

	case strings.TrimSpace(result) == "":
		answer = "No data found matching your specific criteria. The database contains data, but your query returned no results. Please try rephrasing your question or using different search terms."
		return answer, s.suggester.Suggest(ctx, mem, "", 3), "", 0

	default:
		formatted, tokens, err := s.formatter.Format(ctx, question, query, result)
		if err != nil {
			s.log.WithError(err).Warn("answer formatting failed, returning raw result")
			return "Here are the results for your query:\n\n" + result, nil, "", tokens
		}
		return formatted, nil, "", tokens
	}
}

// answerGreeting handles the conversational short-circuit: a canned
// reply, a zero-cost turn and metric, no cache or collaborator work.
func (s *Service) answerGreeting(req Request, question string, start time.Time) Response {
	reply := GreetingReply(question)
	elapsed := time.Since(start)

	if req.SessionID != "" {
		mem := s.registry.GetOrCreate(req.SessionID)
		mem.AddTurn(session.Turn{
			Timestamp:    time.Now(),
			Question:     question,
			Query:        greetingQuery,
			Result:       "N/A",
			Answer:       reply,
			ResponseTime: elapsed,
		})
	}

	s.monitor.Record(monitor.Metric{
		Operation: operationName,
		Duration:  elapsed,
	})

	return Response{
		Success:     true,
		Answer:      reply,
		Elapsed:     elapsed,
		SessionID:   req.SessionID,
		Suggestions: greetingSuggestions,
	}
}

// answerCancelled handles a context cancelled while waiting for an
// admission slot.
func (s *Service) answerCancelled(req Request, question string, start time.Time, err error) Response {
	elapsed := time.Since(start)
	s.monitor.Record(monitor.Metric{
		Operation: operationName,
		Duration:  elapsed,
		Error:     "cancelled waiting for slot: " + err.Error(),
	})
	return Response{
		Success:     false,
		Answer:      "The request was cancelled before it could be processed. Please try again.",
		Elapsed:     elapsed,
		SessionID:   req.SessionID,
		Suggestions: errorSuggestions,
	}
}

// AttachFeedback appends free-text feedback to the most recent turn of
// the named session. Returns false if the session or turn is missing.
func (s *Service) AttachFeedback(ctx context.Context, sessionID, feedback string) bool {
	mem, ok := s.registry.Get(sessionID)
	if !ok {
		return false
	}
	if !mem.AttachFeedback(feedback) {
		return false
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, bus.TopicFeedback, bus.NewEvent("chat.feedback", sessionID, feedback)); err != nil {
			s.log.WithError(err).Debug("feedback event publish failed")
		}
	}
	return true
}

// Suggestions returns follow-up question suggestions for a session.
func (s *Service) Suggestions(ctx context.Context, sessionID, team string, count int) []string {
	var mem *session.Memory
	if sessionID != "" {
		mem, _ = s.registry.Get(sessionID)
	}
	return s.suggester.Suggest(ctx, mem, team, count)
}

// publishOutcome emits a best-effort pipeline event. Publish failures
// are logged and discarded.
func (s *Service) publishOutcome(ctx context.Context, sessionID, question, query, failure string) {
	if s.events == nil {
		return
	}

	topic := bus.TopicChatAnswered
	eventType := "chat.answered"
	if failure != "" {
		topic = bus.TopicChatFailed
		eventType = "chat.failed"
	}

	event := bus.NewEvent(eventType, sessionID, map[string]string{
		"question": question,
		"query":    query,
		"error":    failure,
	})
	if err := s.events.Publish(ctx, topic, event); err != nil {
		s.log.WithError(err).Debug("outcome event publish failed")
	}
}

// describeExecutionFailure maps an execution error to the in-band
// error string the response assembly understands.
func describeExecutionFailure(err error) string {
	switch errors.ClassifyExecution(err) {
	case errors.CodeSchema:
		return "Error: Column not found in database schema - " + err.Error()
	case errors.CodeSyntax:
		return "Error: SQL syntax error - " + err.Error()
	case errors.CodeConnectivity:
		return "Error: Database connection failed - " + err.Error()
	default:
		return "Error: Database query failed - " + err.Error()
	}
}

func excerpt(result string) string {
	if len(result) > resultExcerptLimit {
		return result[:resultExcerptLimit] + "..."
	}
	return result
}
