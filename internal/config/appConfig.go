package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY no está configurada")

const (
	VectorBackendChromem = "chromem"
	VectorBackendQdrant  = "qdrant"

	DefaultConfigPath = "config.yaml"
)

// UIConfig is the presentation text of the widget.
type UIConfig struct {
	PageTitle          string `yaml:"page_title"`
	PageIcon           string `yaml:"page_icon"`
	HeaderImage        string `yaml:"header_image"`
	AppTitle           string `yaml:"app_title"`
	AppSubheader       string `yaml:"app_subheader"`
	WelcomeMessage     string `yaml:"welcome_message"`
	SpinnerMessage     string `yaml:"spinner_message"`
	InputPlaceholder   string `yaml:"input_placeholder"`
	OfficialWebsiteURL string `yaml:"official_website_url"`
	WebsiteLinkText    string `yaml:"website_link_text"`
	CSSFilePath        string `yaml:"css_file_path"`
}

type ModelConfig struct {
	Generation string `yaml:"generation"`
	Embedding  string `yaml:"embedding"`
}

type RetrievalConfig struct {
	Compression   bool   `yaml:"compression"`
	VectorBackend string `yaml:"vector_backend"`
}

// Secrets never come from the yaml file.
type Secrets struct {
	GoogleAPIKey       string
	ServiceAccountJSON []byte
	ServiceAccountFile string
	RedisAddr          string
	RedisPassword      string
	QdrantHost         string
	QdrantPort         int
	IsProd             bool
}

type AppConfig struct {
	UI              UIConfig        `yaml:"ui"`
	PDFDocumentPath string          `yaml:"pdf_document_path"`
	Models          ModelConfig     `yaml:"models"`
	Retrieval       RetrievalConfig `yaml:"retrieval"`
	Secrets         Secrets         `yaml:"-"`
}

// Load reads the yaml at path (defaults when it does not exist) and the secrets
// from the environment, after loading an optional .env file.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	applyConfigDefaults(cfg)
	cfg.Secrets = loadSecrets()
	return cfg, nil
}

// Validate reports the fatal startup conditions that depend on config alone.
func (c *AppConfig) Validate() error {
	if c.Secrets.GoogleAPIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Retrieval.VectorBackend {
	case VectorBackendChromem, VectorBackendQdrant:
	default:
		return fmt.Errorf("unknown vector backend %q", c.Retrieval.VectorBackend)
	}
	return nil
}

// Defaults is the configuration used when config.yaml cannot be read.
func Defaults() *AppConfig {
	cfg := defaultConfig()
	cfg.Secrets = loadSecrets()
	return cfg
}

func (s Secrets) HasSpeechCredentials() bool {
	return len(s.ServiceAccountJSON) > 0 || s.ServiceAccountFile != ""
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		UI: UIConfig{
			PageTitle:          "Asistente CSD",
			PageIcon:           "🎓",
			HeaderImage:        "header_banner.png",
			AppTitle:           "🎓 Asistente Virtual del Colegio Santo Domingo",
			AppSubheader:       "¡Hola! Estoy aquí para responder tus preguntas basándome en el documento oficial.",
			WelcomeMessage:     "¡Hola! Soy el asistente virtual del CSD. ¿En qué puedo ayudarte?",
			SpinnerMessage:     "Buscando y preparando tu respuesta...",
			InputPlaceholder:   "Escribe tu pregunta aquí...",
			OfficialWebsiteURL: "https://colegiosantodomingo.edu.co/",
			WebsiteLinkText:    "Visita la Página Web Oficial del Colegio",
			CSSFilePath:        "styles.css",
		},
		PDFDocumentPath: "documento.pdf",
		Models: ModelConfig{
			Generation: "gemini-1.5-flash",
			Embedding:  "gemini-embedding-001",
		},
		Retrieval: RetrievalConfig{
			Compression:   true,
			VectorBackend: VectorBackendChromem,
		},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.PDFDocumentPath == "" {
		cfg.PDFDocumentPath = def.PDFDocumentPath
	}
	if cfg.Models.Generation == "" {
		cfg.Models.Generation = def.Models.Generation
	}
	if cfg.Models.Embedding == "" {
		cfg.Models.Embedding = def.Models.Embedding
	}
	if cfg.Retrieval.VectorBackend == "" {
		cfg.Retrieval.VectorBackend = def.Retrieval.VectorBackend
	}
	if cfg.UI.WelcomeMessage == "" {
		cfg.UI.WelcomeMessage = def.UI.WelcomeMessage
	}
	if cfg.UI.InputPlaceholder == "" {
		cfg.UI.InputPlaceholder = def.UI.InputPlaceholder
	}
}

func loadSecrets() Secrets {
	s := Secrets{
		GoogleAPIKey:       os.Getenv("GOOGLE_API_KEY"),
		ServiceAccountFile: os.Getenv("GCP_SERVICE_ACCOUNT_FILE"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		QdrantHost:         os.Getenv("QDRANT_HOST"),
		IsProd:             os.Getenv("APP_ENV") == "prod",
	}
	if blob := os.Getenv("GCP_SERVICE_ACCOUNT_JSON"); blob != "" {
		s.ServiceAccountJSON = []byte(blob)
	}
	if s.RedisAddr == "" {
		s.RedisAddr = RedisAddr
	}
	if s.QdrantHost == "" {
		s.QdrantHost = QdrantHost
	}
	port, err := strconv.Atoi(os.Getenv("QDRANT_PORT"))
	if err != nil {
		port = QdrantGrpcPort
	}
	s.QdrantPort = port
	return s
}
