package auth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is prepended to every configuration variable
const EnvPrefix = "POSTAUTH_"

const (
	OTPCharsetDigits = "digits"
	OTPCharsetAlnum  = "alnum"
)

// Config is process wide configuration, loaded once at startup and injected
// into components.
type Config struct {
	SigningKey      string        `env:"SIGNING_KEY"`
	Issuer          string        `env:"ISSUER" envDefault:"postauth"`
	TokenExpiration time.Duration `env:"TOKEN_EXPIRATION" envDefault:"24h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	OTPLength       int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPCharset      string        `env:"OTP_CHARSET" envDefault:"digits"`
	DatabaseDSN     string        `env:"DATABASE_DSN" envDefault:"file:postauth.db?cache=shared"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	MailFrom        string        `env:"MAIL_FROM" envDefault:"no-reply@postauth.local"`
	SMTP            SMTPConfig    `envPrefix:"SMTP_"`
}

// SMTPConfig holds the outbound mail server settings. An empty Host selects
// the logging mailer.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// LoadConfig parses the environment and validates the result
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate will run validation rules
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.TokenExpiration, validation.Min(time.Duration(0))),
		validation.Field(&c.BcryptCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&c.OTPLength, validation.Min(3), validation.Max(12)),
		validation.Field(&c.OTPCharset, validation.Required, validation.In(OTPCharsetDigits, OTPCharsetAlnum)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	}
	return nil
}

// CodeGenerator builds the OTP generator described by the configuration
func (c *Config) CodeGenerator() CodeGenerator {
	charset := DigitCharset
	if c.OTPCharset == OTPCharsetAlnum {
		charset = AlnumCharset
	}
	return NewRandomCodeGenerator(c.OTPLength, charset)
}

// Hasher builds the hashing gate with the configured work factor
func (c *Config) Hasher() BcryptHasher {
	return NewBcryptHasher(c.BcryptCost)
}
