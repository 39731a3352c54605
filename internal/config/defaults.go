package config

// DefaultKeywordBoosts is the compiled-in boost table. It covers the
// operational domains the knowledge base answers for most often; deployments
// override it with retrieval.keyword_boosts in the config file.
func DefaultKeywordBoosts() map[string]float64 {
	return map[string]float64{
		"касса":       0.05,
		"x-отчёт":     0.05,
		"интернет":    0.05,
		"звук бизнес": 0.05,
		"кондицион":   0.05,
		"дезинсек":    0.05,
	}
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "index"
	}
	if cfg.Storage.QueryLogPath == "" {
		cfg.Storage.QueryLogPath = "logs/queries.db"
	}
	if cfg.Corpus.RootDir == "" {
		cfg.Corpus.RootDir = "data"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".md", ".txt", ".pdf", ".docx", ".xlsx"}
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Retrieval.ChunkMinLen == 0 {
		cfg.Retrieval.ChunkMinLen = 800
	}
	if cfg.Retrieval.ChunkMaxLen == 0 {
		cfg.Retrieval.ChunkMaxLen = 1200
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = 150
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 8
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 6000
	}
	if cfg.Retrieval.RelevanceThreshold == 0 {
		cfg.Retrieval.RelevanceThreshold = 0.25
	}
	if cfg.Retrieval.KeywordBoosts == nil {
		cfg.Retrieval.KeywordBoosts = DefaultKeywordBoosts()
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = "gpt-4o-mini"
	}
	if cfg.Answer.Temperature == 0 {
		cfg.Answer.Temperature = 0.1
	}
	if cfg.Answer.OrgName == "" {
		cfg.Answer.OrgName = "Компания"
	}
	if cfg.Answer.Escalation == "" {
		cfg.Answer.Escalation = "служба поддержки " + cfg.Answer.OrgName + " / ваш ТУ"
	}
	if cfg.Watch.DebounceSeconds == 0 {
		cfg.Watch.DebounceSeconds = 30
	}
}
