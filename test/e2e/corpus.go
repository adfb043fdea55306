// Package e2e provides end-to-end tests that drive the full pipeline:
// file ingestion, chunk indexing, retrieval, synthesis, and export.
package e2e

import (
	"fmt"

	"github.com/hyperjump/docsage/internal/chunker"
)

// CorpusDocument is a document entry in the E2E corpus. Name is the base
// filename without extension; Content is the full document text, kept shorter
// than one chunk window so each document indexes as exactly one chunk.
type CorpusDocument struct {
	Name    string
	Content string
}

// QueryTestCase defines a query and the document that must rank first.
// Queries are the exact chunk text, which the deterministic test embedder
// maps to the stored chunk's own vector.
type QueryTestCase struct {
	Query        string
	ExpectedName string
	Description  string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents []CorpusDocument
	TestCases []QueryTestCase
}

// BuildCorpus returns a corpus of documents with varied content and one query
// test case per document. Content is whitespace-normalized up front so the
// indexed chunk text equals the content verbatim.
func BuildCorpus() *Corpus {
	docs := buildDocuments()
	return &Corpus{
		Documents: docs,
		TestCases: buildQueryTestCases(docs),
	}
}

func buildDocuments() []CorpusDocument {
	raw := []CorpusDocument{
		{"python-guide", "Python is a high-level programming language used for web development and data science. Its standard library covers networking, file handling, and testing."},
		{"kubernetes-docs", "Kubernetes is an open-source container orchestration platform that automates deployment, scaling, and management of containerized applications."},
		{"react-tutorial", "React is a JavaScript library for building user interfaces. Hooks and components let developers compose stateful views from small functions."},
		{"go-language", "Go is a statically typed compiled language. Concurrency is achieved with goroutines and channels, and the toolchain builds static binaries."},
		{"postgresql-manual", "PostgreSQL is an advanced relational database supporting JSON columns, full-text search, and serializable transactions."},
		{"docker-handbook", "Docker packages applications into portable container images that run identically across development, staging, and production environments."},
		{"machine-learning", "Machine learning algorithms learn patterns from labeled data. Model quality depends on feature selection and training set size."},
		{"neural-networks", "Neural networks are layered function approximators inspired by the brain. Deep architectures power modern image and language models."},
		{"rest-api-design", "REST endpoints use HTTP methods and status codes. Resource naming and pagination conventions keep an API predictable."},
		{"graphql-overview", "GraphQL is a query language for APIs that lets clients request exactly the fields they need in a single round trip."},
		{"typescript-handbook", "TypeScript adds static types to JavaScript. The compiler catches mismatched arguments and missing properties before runtime."},
		{"redis-cache", "Redis is an in-memory data store used for caching, session storage, and rate limiting. Keys expire with configurable TTLs."},
		{"vector-database", "Vector databases store embeddings and answer nearest-neighbor queries using cosine similarity or dot product distance."},
		{"embedding-models", "Embedding models transform text into dense vectors. Sentences with similar meaning land close together in the vector space."},
		{"chunking-strategy", "Chunking splits long documents into overlapping windows. Overlap preserves context that would otherwise be cut at a boundary."},
		{"rag-overview", "Retrieval-augmented generation grounds language model answers in retrieved document excerpts, reducing hallucination."},
		{"prompt-engineering", "Prompt engineering guides model behavior with instructions and examples. Few-shot prompts embed worked examples directly."},
		{"grpc-overview", "gRPC is a high-performance RPC framework using HTTP/2 and protocol buffers for compact binary serialization."},
		{"oauth-authorization", "OAuth 2.0 is an authorization framework enabling delegated access. Tokens carry scopes that bound what a client may do."},
		{"message-queues", "Message queues decouple producers from consumers. Asynchronous delivery lets each side scale independently."},
		{"rate-limiting", "Rate limiting protects APIs from abuse. Token bucket and sliding window algorithms throttle per-user or globally."},
		{"circuit-breakers", "Circuit breakers stop cascading failures by failing fast when a downstream dependency is unhealthy."},
		{"structured-logging", "Structured logging emits key-value records instead of free text, making production logs searchable and aggregatable."},
		{"distributed-tracing", "Distributed tracing follows a request across services. Spans record latency at each hop for bottleneck analysis."},
		{"load-balancing", "Load balancers distribute traffic across replicas, removing single points of failure and smoothing rollout of new versions."},
		{"backup-strategy", "Backups protect against data loss. A recovery plan defines the recovery time objective and recovery point objective."},
		{"graceful-shutdown", "Graceful shutdown drains in-flight connections on SIGTERM before the process exits, avoiding dropped requests."},
		{"health-checks", "Health check endpoints report liveness and readiness. Orchestrators restart containers that fail their probes."},
		{"secrets-management", "Secrets must never live in source code. A vault encrypts credentials at rest and audits every access."},
		{"incident-response", "Incident response runbooks define escalation steps, communication channels, and rollback procedures for outages."},
	}
	out := make([]CorpusDocument, len(raw))
	for i, d := range raw {
		out[i] = CorpusDocument{Name: d.Name, Content: chunker.Normalize(d.Content)}
	}
	return out
}

func buildQueryTestCases(docs []CorpusDocument) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(docs))
	for _, d := range docs {
		cases = append(cases, QueryTestCase{
			Query:        d.Content,
			ExpectedName: d.Name,
			Description:  fmt.Sprintf("query targeting %s", d.Name),
		})
	}
	return cases
}
