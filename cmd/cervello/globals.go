package main

import (
	"github.com/alecthomas/kong"
)

type Globals struct {
	Config  kong.ConfigFlag  `help:"Path to a YAML config file." type:"path" env:"CERVELLO_CONFIG"`
	Version kong.VersionFlag `help:"Print the version and exit."`

	// Gating
	Threshold float32 `help:"Similarity at or above which writes and deletes match an existing record." default:"0.9" env:"CERVELLO_THRESHOLD"`

	// Index config
	IndexProvider string `help:"Vector index backend." enum:"memory,qdrant,postgres,sqlite,redis" default:"memory" env:"CERVELLO_INDEX_PROVIDER"`
	IndexLocation string `help:"Address or DSN of the vector index." default:"" env:"CERVELLO_INDEX_LOCATION"`
	IndexApiKey   string `help:"API key for the vector index." default:"" env:"CERVELLO_INDEX_API_KEY"`
	Collection    string `help:"Collection, table or key prefix holding the records." default:"my_collection" env:"CERVELLO_COLLECTION"`
	VectorSize    int    `help:"Embedding dimension of the index." default:"384" env:"CERVELLO_VECTOR_SIZE"`

	// Embedder config
	EmbedderProvider string `help:"Embedding backend." enum:"hashing,openai,google" default:"hashing" env:"CERVELLO_EMBEDDER_PROVIDER"`
	EmbedderApiKey   string `help:"API key for the embedder." default:"" env:"CERVELLO_EMBEDDER_API_KEY"`
	EmbedderModel    string `help:"Model identifier for the embedder." default:"" env:"CERVELLO_EMBEDDER_MODEL"`

	// Generator config
	GeneratorProvider string  `help:"Text generation backend." enum:"openai,anthropic,google" default:"openai" env:"CERVELLO_GENERATOR_PROVIDER"`
	GeneratorApiKey   string  `help:"API key for the generator." default:"" env:"CERVELLO_GENERATOR_API_KEY"`
	GeneratorModel    string  `help:"Model identifier for the generator." default:"" env:"CERVELLO_GENERATOR_MODEL"`
	MaxTokens         int     `help:"Maximum tokens per generated answer." default:"1024" env:"CERVELLO_MAX_TOKENS"`
	Temperature       float32 `help:"Sampling temperature for generated answers." default:"0.7" env:"CERVELLO_TEMPERATURE"`
	SystemPrompt      string  `help:"System prompt for answers." default:"" env:"CERVELLO_SYSTEM_PROMPT"`

	// Ticket config
	TicketProvider string `help:"Ticket store backend." enum:"memory,mongo" default:"memory" env:"CERVELLO_TICKET_PROVIDER"`
	TicketLocation string `help:"MongoDB URI for tickets." default:"mongodb://localhost:27017" env:"CERVELLO_TICKET_LOCATION"`
	TicketDatabase string `help:"MongoDB database for tickets." default:"cervello" env:"CERVELLO_TICKET_DATABASE"`

	// Answer config
	Window        int     `help:"Turns kept per conversation." default:"20" env:"CERVELLO_WINDOW"`
	SearchLimit   int     `help:"Records retrieved per prompt." default:"5" env:"CERVELLO_SEARCH_LIMIT"`
	HistoryLimit  int     `help:"Conversation turns sent with a prompt." default:"10" env:"CERVELLO_HISTORY_LIMIT"`
	LowConfidence float32 `help:"Best retrieval score below which an answer opens a ticket." default:"0.3" env:"CERVELLO_LOW_CONFIDENCE"`
	WriteBack     bool    `help:"Store each prompt and answer back into the index." default:"true" negatable:"" env:"CERVELLO_WRITE_BACK"`
}
