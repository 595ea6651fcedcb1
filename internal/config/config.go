package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full settings document. It is loaded once at startup
// and treated as read-only for the rest of the run.
type Config struct {
	Identity Identity          `mapstructure:"identity" yaml:"identity"`
	Files    map[string]string `mapstructure:"files" yaml:"files"`
	Email    Email             `mapstructure:"email" yaml:"email"`
	Forms    Forms             `mapstructure:"forms" yaml:"forms"`
	Logging  Logging           `mapstructure:"logging" yaml:"logging"`
}

type Identity struct {
	FirstName    string `mapstructure:"first_name" yaml:"first_name"`
	LastName     string `mapstructure:"last_name" yaml:"last_name"`
	Email        string `mapstructure:"email" yaml:"email"`
	Phone        string `mapstructure:"phone" yaml:"phone"`
	City         string `mapstructure:"city" yaml:"city"`
	PortfolioURL string `mapstructure:"portfolio_url" yaml:"portfolio_url"`
	LinkedinURL  string `mapstructure:"linkedin_url" yaml:"linkedin_url"`
}

type Email struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost     string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int      `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username     string   `mapstructure:"username" yaml:"username"`
	AppPassword  string   `mapstructure:"app_password" yaml:"app_password"`
	FromName     string   `mapstructure:"from_name" yaml:"from_name"`
	Subject      string   `mapstructure:"subject" yaml:"subject"`
	BodyTemplate string   `mapstructure:"body_template" yaml:"body_template"`
	Signature    string   `mapstructure:"signature" yaml:"signature"`
	// Attachments holds keys into Files, in the order they are attached.
	Attachments []string `mapstructure:"attachments" yaml:"attachments"`
	// TeamFallback replaces {contact_name_or_team} when a row has no contact name.
	TeamFallback string `mapstructure:"team_fallback" yaml:"team_fallback"`
	// IntroFallback replaces {intro_note} when a row has no intro note.
	IntroFallback string `mapstructure:"intro_fallback" yaml:"intro_fallback"`
}

type Forms struct {
	Enabled         bool      `mapstructure:"enabled" yaml:"enabled"`
	Headless        bool      `mapstructure:"headless" yaml:"headless"`
	TimeoutMS       int       `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	MaxPerRun       int       `mapstructure:"max_per_run" yaml:"max_per_run"`
	MinDelayS       float64   `mapstructure:"min_delay_s" yaml:"min_delay_s"`
	MaxDelayS       float64   `mapstructure:"max_delay_s" yaml:"max_delay_s"`
	ConsentTexts    []string  `mapstructure:"consent_texts" yaml:"consent_texts"`
	SuccessTexts    []string  `mapstructure:"success_texts" yaml:"success_texts"`
	Selectors       Selectors `mapstructure:"selectors" yaml:"selectors"`
	MessageTemplate string    `mapstructure:"message_template" yaml:"message_template"`
}

// Selectors maps each logical form field to an ordered fallback list.
// The first selector that matches at least one element wins.
type Selectors struct {
	Name         []string `mapstructure:"name" yaml:"name"`
	Email        []string `mapstructure:"email" yaml:"email"`
	Phone        []string `mapstructure:"phone" yaml:"phone"`
	Message      []string `mapstructure:"message" yaml:"message"`
	CVUpload     []string `mapstructure:"cv_upload" yaml:"cv_upload"`
	LetterUpload []string `mapstructure:"letter_upload" yaml:"letter_upload"`
	FlyerUpload  []string `mapstructure:"flyer_upload" yaml:"flyer_upload"`
	Submit       []string `mapstructure:"submit" yaml:"submit"`
}

type Logging struct {
	OutputCSV string `mapstructure:"output_csv" yaml:"output_csv"`
	SqliteDB  string `mapstructure:"sqlite_db" yaml:"sqlite_db"`
}

// Default returns the built-in configuration. Callers get a fresh value
// each time, there is no shared mutable default.
func Default() Config {
	return Config{
		Identity: Identity{
			FirstName:    "Name",
			LastName:     "Surname",
			Email:        "you@example.com",
			Phone:        "+33 6 00 00 00 00",
			City:         "Paris",
			PortfolioURL: "https://your-portfolio.example",
			LinkedinURL:  "https://www.linkedin.com/in/your-profile",
		},
		Files: map[string]string{
			"cv":           "./docs/CV.pdf",
			"cover_letter": "./docs/motivation.pdf",
			"flyer":        "./docs/flyer.pdf",
		},
		Email: Email{
			Enabled:     true,
			SMTPHost:    "smtp.gmail.com",
			SMTPPort:    465,
			Username:    "you@example.com",
			AppPassword: "app_password_here",
			FromName:    "Name Surname",
			Subject:     "Candidature stage — {company}",
			BodyTemplate: "Hello {contact_name_or_team},\n\n" +
				"I am reaching out to apply for a development internship. " +
				"Please find attached my CV and cover letter.\n\n" +
				"Portfolio: {portfolio_url}\nLinkedIn: {linkedin_url}\n\n" +
				"Kind regards,\n{first_name} {last_name}\n{phone}\n{email}",
			Signature:     "",
			Attachments:   []string{"cv", "cover_letter", "flyer"},
			TeamFallback:  "l'équipe RH",
			IntroFallback: "mon projet actuel",
		},
		Forms: Forms{
			Enabled:      true,
			Headless:     true,
			TimeoutMS:    20000,
			MaxPerRun:    20,
			MinDelayS:    7,
			MaxDelayS:    20,
			ConsentTexts: []string{"Accepter", "Tout accepter", "OK", "D'accord"},
			SuccessTexts: []string{"merci", "thank you", "reçu", "received", "envoyée", "submitted", "bien reçu"},
			Selectors: Selectors{
				Name:         []string{"input[name*='name']", "input[name*='prenom']", "input[name*='nom']", "input[id*='name']", "input[id*='full']"},
				Email:        []string{"input[type='email']", "input[name*='mail']", "input[id*='mail']"},
				Phone:        []string{"input[type='tel']", "input[name*='phone']", "input[id*='phone']"},
				Message:      []string{"textarea[name*='message']", "textarea[id*='message']", "textarea[name*='motivation']", "textarea[id*='motivation']"},
				CVUpload:     []string{"input[type='file'][name*='cv']", "input[type='file'][id*='cv']", "input[type='file'][name*='resume']", "input[type='file'][id*='resume']", "input[type='file']"},
				LetterUpload: []string{"input[type='file'][name*='lettre']", "input[type='file'][name*='motivation']", "input[type='file']"},
				FlyerUpload:  []string{"input[type='file']"},
				Submit:       []string{"button[type='submit']", "input[type='submit']", "text=Postuler", "text=Envoyer", "text=Soumettre", "text=Apply", "text=Submit"},
			},
			MessageTemplate: "Hello, I am applying for an internship. Please find attached my CV and cover letter. Thank you!",
		},
		Logging: Logging{
			OutputCSV: "./logs/applications_log.csv",
			SqliteDB:  "./logs/applications.db",
		},
	}
}

// LoadOrInit reads the config at path, writing the default document
// first if the file does not exist. User-supplied values are merged
// over the defaults; keys missing from the file keep their default.
func LoadOrInit(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeDefault(path); err != nil {
			return Config{}, err
		}
		fmt.Printf("[i] Created default config at %s. Fill in your details and paths.\n", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
