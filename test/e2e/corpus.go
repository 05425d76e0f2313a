// Package e2e exercises the full ingest-then-search pipeline over a
// generated corpus with known-answer queries.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one file in the generated corpus.
type Document struct {
	Path  string
	Title string
	Body  string
}

// QueryCase is a query and the relative path(s) that must appear in the
// results. At least one of ExpectedPaths must be present.
type QueryCase struct {
	Query         string
	ExpectedPaths []string
	Description   string
}

// Corpus holds the generated documents and their query cases.
type Corpus struct {
	Documents []Document
	Cases     []QueryCase
}

// topics seed the corpus. Each carries a signature phrase that appears in
// exactly one topic, so queries can assert the right document comes back.
var topics = []struct {
	title  string
	phrase string
	body   string
}{
	{"Python Guide", "python interpreted scripting", "Python is a high-level interpreted language. Python interpreted scripting is used for automation and data science."},
	{"Kubernetes Docs", "kubernetes container orchestration", "Kubernetes is an open-source platform. Kubernetes container orchestration automates deployment and scaling."},
	{"Go Language", "golang goroutines channels", "Go is a statically typed language. Golang goroutines channels make concurrency tractable."},
	{"PostgreSQL Manual", "postgresql relational database", "PostgreSQL is an advanced database. PostgreSQL relational database supports JSON and full-text search."},
	{"Docker Handbook", "docker container images", "Docker builds and ships applications. Docker container images are portable across environments."},
	{"Machine Learning", "machine learning algorithms", "Machine learning is a subset of AI. Machine learning algorithms find patterns in data."},
	{"Neural Networks", "neural network backpropagation", "Neural networks are layered models. Neural network backpropagation adjusts weights by gradient."},
	{"REST API Design", "rest api endpoints", "REST is an architectural style. Rest api endpoints use HTTP methods and status codes."},
	{"Redis Cache", "redis in-memory cache", "Redis is an in-memory data store. Redis in-memory cache backs sessions and hot paths."},
	{"Terraform IaC", "terraform infrastructure declarative", "Terraform manages cloud resources. Terraform infrastructure declarative configs are planned before apply."},
	{"Prometheus Metrics", "prometheus monitoring timeseries", "Prometheus scrapes metrics. Prometheus monitoring timeseries data drives alerting."},
	{"Git Workflow", "git distributed version control", "Git tracks source history. Git distributed version control enables branching and merging."},
	{"Kafka Streams", "kafka event streaming", "Kafka is a distributed log. Kafka event streaming handles high-throughput pipelines."},
	{"Nginx Config", "nginx reverse proxy", "Nginx serves and proxies HTTP. Nginx reverse proxy balances load across backends."},
	{"Semantic Search", "semantic search embeddings", "Semantic search matches meaning, not just terms. Semantic search embeddings capture context."},
	{"Keyword Search", "keyword inverted index", "Keyword search matches terms exactly. Keyword inverted index lookups are fast and precise."},
	{"Vector Database", "vector similarity cosine", "Vector stores hold embeddings. Vector similarity cosine distance ranks neighbors."},
	{"Chunking Strategy", "chunking overlap windows", "Long documents are split for embedding. Chunking overlap windows preserve context at boundaries."},
	{"Rate Limiting", "rate limiting throttling", "Rate limits protect APIs. Rate limiting throttling can be per-user or global."},
	{"Circuit Breaker", "circuit breaker resilience", "Circuit breakers stop cascading failures. Circuit breaker resilience patterns fail fast."},
	{"Distributed Tracing", "distributed tracing spans", "Traces follow requests across services. Distributed tracing spans expose latency breakdowns."},
	{"Password Hashing", "password hashing bcrypt", "Passwords are never stored raw. Password hashing bcrypt resists brute force."},
	{"Backup Strategy", "backup recovery objectives", "Backups guard against loss. Backup recovery objectives include RTO and RPO."},
	{"Load Balancing", "load balancing availability", "Balancers spread traffic. Load balancing availability removes single points of failure."},
}

// BuildCorpus generates n Markdown documents cycling through the topics,
// plus one query case per distinct topic.
func BuildCorpus(n int) *Corpus {
	c := &Corpus{}
	for i := 0; i < n; i++ {
		topic := topics[i%len(topics)]
		round := i/len(topics) + 1
		path := fmt.Sprintf("%s/part-%d.md", slug(topic.title), round)
		c.Documents = append(c.Documents, Document{
			Path:  path,
			Title: fmt.Sprintf("%s (part %d)", topic.title, round),
			Body:  fmt.Sprintf("# %s (part %d)\n\n%s\n", topic.title, round, topic.body),
		})
	}

	for i, topic := range topics {
		if i >= n {
			break
		}
		var expected []string
		for _, d := range c.Documents {
			if strings.HasPrefix(d.Path, slug(topic.title)+"/") {
				expected = append(expected, d.Path)
			}
		}
		c.Cases = append(c.Cases, QueryCase{
			Query:         topic.phrase,
			ExpectedPaths: expected,
			Description:   slug(topic.title),
		})
	}
	return c
}

// WriteTo materializes the corpus under dir.
func (c *Corpus) WriteTo(dir string) error {
	for _, d := range c.Documents {
		path := filepath.Join(dir, filepath.FromSlash(d.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(d.Body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func slug(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}
