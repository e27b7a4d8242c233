// Package pipeline runs one chat turn: retrieve knowledge, match properties,
// generate the reply and decide whether the visitor is a lead.
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"chatbot-engine/internal/common/config"
	"chatbot-engine/internal/common/genai"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/observability"
	"chatbot-engine/internal/core/extractor"
	"chatbot-engine/internal/core/leadcapture"
	"chatbot-engine/internal/core/matcher"
	"chatbot-engine/internal/core/ranker"
	"chatbot-engine/internal/core/responder"
	"chatbot-engine/internal/models"
)

// KnowledgeBase returns every stored chunk of a bot.
type KnowledgeBase interface {
	ChunksForBot(ctx context.Context, botID string) ([]models.KnowledgeChunk, error)
}

// PropertyCatalog returns a bot's active listings.
type PropertyCatalog interface {
	ActiveProperties(ctx context.Context, botID string) ([]models.PropertyRecord, error)
}

// LeadStore holds the per-conversation "already notified" flag. MarkNotified
// reports true only to the first caller.
type LeadStore interface {
	MarkNotified(ctx context.Context, botID, sessionID string) (bool, error)
	Reset(ctx context.Context, botID, sessionID string) error
}

type Options struct {
	TopK          int
	HistoryWindow int
	LeadWindow    int
	MaxMatches    int
}

func OptionsFromConfig(cfg config.RetrievalConfig) Options {
	return Options{
		TopK:          cfg.TopK,
		HistoryWindow: cfg.HistoryWindow,
		LeadWindow:    cfg.LeadWindow,
		MaxMatches:    cfg.MaxMatches,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = ranker.DefaultTopK
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = 5
	}
	if o.LeadWindow <= 0 {
		o.LeadWindow = leadcapture.DefaultWindow
	}
	if o.MaxMatches <= 0 {
		o.MaxMatches = matcher.DefaultMaxMatches
	}
	return o
}

// TurnRequest is one visitor message plus what the caller knows about the
// conversation so far. History excludes Message.
type TurnRequest struct {
	BotID        string
	SessionID    string
	Message      string
	History      []models.Message
	SystemPrompt string
	Settings     models.AISettings
}

// LeadDetails are the extracted requirements to fold into the lead record.
type LeadDetails struct {
	InterestedIn      string         `json:"interestedIn"`
	PreferredLocation string         `json:"preferredLocation,omitempty"`
	Budget            *models.Budget `json:"budget,omitempty"`
}

type TurnResult struct {
	Reply             string                  `json:"reply"`
	Contexts          []models.RankedContext  `json:"contexts"`
	Matches           []models.PropertyRecord `json:"propertyMatches"`
	Usage             models.UsageMetrics     `json:"usage"`
	ShouldCaptureLead bool                    `json:"shouldCaptureLead"`
	Lead              *LeadDetails            `json:"lead,omitempty"`
	// Messages is History with this turn's user and assistant messages appended.
	Messages []models.Message `json:"messages"`
}

type Pipeline struct {
	embedder  genai.Embedder
	knowledge KnowledgeBase
	catalog   PropertyCatalog
	extractor *extractor.Extractor
	responder *responder.Responder
	obs       *observability.Observability
	log       logger.Logger
	opts      Options
}

func New(provider genai.Provider, knowledge KnowledgeBase, catalog PropertyCatalog, obs *observability.Observability, log logger.Logger, opts Options) *Pipeline {
	return &Pipeline{
		embedder:  provider,
		knowledge: knowledge,
		catalog:   catalog,
		extractor: extractor.New(provider, log),
		responder: responder.New(provider),
		obs:       obs,
		log:       log,
		opts:      opts.withDefaults(),
	}
}

// Run executes the turn. Only knowledge-store, catalog and generation
// failures abort it; retrieval and extraction degrade to nothing.
func (p *Pipeline) Run(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	ctx, span := p.obs.StartSpan(ctx, "chat-turn",
		attribute.String("bot.id", req.BotID),
		attribute.String("session.id", req.SessionID),
	)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	messages := make([]models.Message, 0, len(req.History)+2)
	messages = append(messages, req.History...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: req.Message})

	contexts, err := p.retrieve(ctx, req.BotID, req.Message)
	if err != nil {
		return nil, err
	}

	matches, lead, err := p.recommend(ctx, req.BotID, req.Message)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := p.responder.Respond(ctx, models.LastN(messages, p.opts.HistoryWindow), req.SystemPrompt, ranker.Texts(contexts), req.Settings)
	p.obs.RecordStage(ctx, "respond", time.Since(start))
	if err != nil {
		return nil, err
	}

	text := reply.Text
	if len(matches) > 0 {
		text += FormatRecommendations(matches)
	}
	messages = append(messages, models.Message{Role: models.RoleAssistant, Content: text})

	capture := leadcapture.ShouldCaptureWindow(messages, p.opts.LeadWindow)

	p.log.Debug("Chat turn completed", map[string]interface{}{
		"botId":             req.BotID,
		"sessionId":         req.SessionID,
		"contexts":          len(contexts),
		"matches":           len(matches),
		"shouldCaptureLead": capture,
		"totalTokens":       reply.Usage.TotalTokens,
	})

	return &TurnResult{
		Reply:             text,
		Contexts:          contexts,
		Matches:           matches,
		Usage:             reply.Usage,
		ShouldCaptureLead: capture,
		Lead:              lead,
		Messages:          messages,
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, botID, query string) ([]models.RankedContext, error) {
	start := time.Now()
	defer func() { p.obs.RecordStage(ctx, "retrieve", time.Since(start)) }()

	chunks, err := p.knowledge.ChunksForBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []models.RankedContext{}, nil
	}

	queryEmbedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		p.log.Warn("Query embedding failed, answering without context", map[string]interface{}{
			"botId": botID,
			"error": err.Error(),
		})
		return []models.RankedContext{}, nil
	}

	return ranker.Rank(queryEmbedding, chunks, p.opts.TopK), nil
}

func (p *Pipeline) recommend(ctx context.Context, botID, message string) ([]models.PropertyRecord, *LeadDetails, error) {
	properties, err := p.catalog.ActiveProperties(ctx, botID)
	if err != nil {
		return nil, nil, err
	}
	if len(properties) == 0 {
		return []models.PropertyRecord{}, nil, nil
	}

	start := time.Now()
	req := p.extractor.Extract(ctx, message)
	p.obs.RecordStage(ctx, "extract", time.Since(start))
	if req == nil {
		return []models.PropertyRecord{}, nil, nil
	}

	start = time.Now()
	matches := matcher.Top(matcher.Match(req, properties), p.opts.MaxMatches)
	p.obs.RecordStage(ctx, "match", time.Since(start))

	return matches, leadDetails(req), nil
}

func leadDetails(req *models.RequirementRecord) *LeadDetails {
	lead := &LeadDetails{InterestedIn: "property", Budget: req.Budget}
	if req.PropertyType != nil && *req.PropertyType != "" {
		lead.InterestedIn = *req.PropertyType
	}
	if req.Location != nil {
		lead.PreferredLocation = *req.Location
	}
	return lead
}

