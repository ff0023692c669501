package auth

import "time"

// Services bundles every component built from one Config
type Services struct {
	Config          *Config
	Repo            RepositoryManager
	Hasher          PasswordHasher
	Tokens          *TokenService
	Issuer          *OTPIssuer
	Machine         AccountStateMachine
	Provider        *AccountProvider
	Auther          *Auther
	Register        *RegisterAccountHandler
	ChangePassword  *ChangePasswordHandler
	RecoverPassword *RecoverPasswordHandler
	Posts           *PostGate
}

type servicesOptions struct {
	now      func() time.Time
	logger   Logger
	activity ActivitySink
	codes    CodeGenerator
	hasher   PasswordHasher
}

// ServicesOption customizes NewServices
type ServicesOption func(*servicesOptions)

// WithServicesClock injects a shared clock (useful for tests).
func WithServicesClock(now func() time.Time) ServicesOption {
	return func(o *servicesOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithServicesLogger sets the logger handed to every component
func WithServicesLogger(logger Logger) ServicesOption {
	return func(o *servicesOptions) {
		o.logger = normalizeLogger(logger)
	}
}

// WithServicesActivitySink sets the sink handed to every component
func WithServicesActivitySink(sink ActivitySink) ServicesOption {
	return func(o *servicesOptions) {
		o.activity = normalizeActivitySink(sink)
	}
}

// WithServicesCodeGenerator overrides the OTP generator from Config
func WithServicesCodeGenerator(codes CodeGenerator) ServicesOption {
	return func(o *servicesOptions) {
		if codes != nil {
			o.codes = codes
		}
	}
}

// WithServicesHasher overrides the hasher from Config
func WithServicesHasher(hasher PasswordHasher) ServicesOption {
	return func(o *servicesOptions) {
		if hasher != nil {
			o.hasher = hasher
		}
	}
}

// NewServices wires the components around repo and mailer. Configuration is
// read once here and injected; nothing reads it afterwards.
func NewServices(cfg *Config, repo RepositoryManager, mailer Mailer, opts ...ServicesOption) *Services {
	repo.MustValidate()

	o := &servicesOptions{
		now:      systemClock,
		logger:   defLogger{},
		activity: noopActivitySink{},
		codes:    cfg.CodeGenerator(),
		hasher:   cfg.Hasher(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	tokens := NewTokenService(
		[]byte(cfg.SigningKey),
		cfg.TokenExpiration,
		cfg.Issuer,
		WithTokenClock(o.now),
		WithTokenLogger(o.logger),
	)

	issuer := NewOTPIssuer(repo, mailer, o.codes,
		WithOTPIssuerClock(o.now),
		WithOTPIssuerLogger(o.logger),
		WithOTPIssuerActivitySink(o.activity),
	)

	machine := NewAccountStateMachine(repo,
		WithStateMachineClock(o.now),
		WithStateMachineLogger(o.logger),
		WithStateMachineActivitySink(o.activity),
	)

	provider := NewAccountProvider(repo.Accounts(), o.hasher).WithLogger(o.logger)

	return &Services{
		Config:   cfg,
		Repo:     repo,
		Hasher:   o.hasher,
		Tokens:   tokens,
		Issuer:   issuer,
		Machine:  machine,
		Provider: provider,
		Auther: NewAuthenticator(provider, tokens).
			WithLogger(o.logger).
			WithActivitySink(o.activity).
			WithClock(o.now),
		Register: NewRegisterAccountHandler(repo, o.hasher, issuer).
			WithLogger(o.logger).
			WithActivitySink(o.activity),
		ChangePassword: NewChangePasswordHandler(repo, o.hasher).
			WithLogger(o.logger).
			WithActivitySink(o.activity),
		RecoverPassword: NewRecoverPasswordHandler(repo, machine, o.hasher).
			WithLogger(o.logger).
			WithActivitySink(o.activity),
		Posts: NewPostGate(repo,
			WithPostGateClock(o.now),
			WithPostGateLogger(o.logger),
			WithPostGateActivitySink(o.activity),
		),
	}
}
