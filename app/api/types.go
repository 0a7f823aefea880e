package api

import (
	"net/http"

	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/feed"
	"github.com/dpetrov/link-comb/app/resolver"
	"github.com/dpetrov/link-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(source database.Source, articles []database.Article) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)
var _ tasks.ArticleResolver = (*resolver.Decoder)(nil)

type Handler struct {
	sourceRepo      database.SourceRepository
	articleRepo     database.ArticleRepository
	generator       GeneratorInterface
	configCache     *feed.ConfigCache
	articleResolver tasks.ArticleResolver
	httpClient      *http.Client
	parser          *feed.Parser
	userAgent       string
	scheduler       tasks.TaskSchedulerInterface
}
