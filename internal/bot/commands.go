package bot

import (
	"context"
	"fmt"

	"github.com/tickethub/panel/internal/models"
	"github.com/tickethub/panel/internal/services"
)

// CommandHandler is one registered remote command. New commands are
// added by registering a handler, not by editing the dispatcher.
type CommandHandler interface {
	Spec() CommandSpec
	Handle(ctx context.Context, sess *Session, inv Invocation) (Reply, error)
}

// Registry maps command names to their handlers, preserving
// registration order for platform-side registration.
type Registry struct {
	handlers map[string]CommandHandler
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]CommandHandler)}
}

func (r *Registry) Register(h CommandHandler) {
	name := h.Spec().Name
	if _, exists := r.handlers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
}

func (r *Registry) Get(name string) (CommandHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Specs returns the command set in registration order.
func (r *Registry) Specs() []CommandSpec {
	specs := make([]CommandSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.handlers[name].Spec())
	}
	return specs
}

// HelpCommand replies with the configured website link. No
// authorization required.
type HelpCommand struct {
	Settings SettingsProvider
}

func (c *HelpCommand) Spec() CommandSpec {
	return CommandSpec{
		Name:        "help",
		Description: "Get the ticket system link",
	}
}

func (c *HelpCommand) Handle(ctx context.Context, sess *Session, inv Invocation) (Reply, error) {
	description := "Open the website to manage tickets and settings."
	thumbnailURL := ""

	settings, err := c.Settings.Get(ctx)
	if err == nil {
		if settings.WebsiteURL != "" {
			description = fmt.Sprintf("Open the website to manage tickets and settings: %s", settings.WebsiteURL)
		}
		thumbnailURL = settings.ImageURL
	}

	return Reply{
		Embed: &Embed{
			Title:        "Ticket System",
			Description:  description,
			Color:        0x2f6bff,
			ThumbnailURL: thumbnailURL,
		},
		Ephemeral: true,
	}, nil
}

// MasterVerifier is the step-up authorization gate consulted by
// privileged commands.
type MasterVerifier interface {
	Verify(ctx context.Context, supplied, operation, actorID string) error
}

// CredentialIssuer mints panel login credentials.
type CredentialIssuer interface {
	Issue(ctx context.Context, accountID string, role models.Role, issuedBy string) (*services.IssuedCredential, error)
}

// PasswordGenerateCommand mints a website login credential for the
// invoking account. Restricted to the owner, and re-verifies the
// master secret on every invocation. The wire name is "paswdgen" for
// compatibility with the deployed command set.
type PasswordGenerateCommand struct {
	OwnerID     string
	Gate        MasterVerifier
	Credentials CredentialIssuer
}

func (c *PasswordGenerateCommand) Spec() CommandSpec {
	return CommandSpec{
		Name:        "paswdgen",
		Description: "Generate a website password for a user",
		Options: []CommandOption{
			{
				Name:        "master_password",
				Description: "Special password to authorize generation",
				Required:    true,
			},
		},
	}
}

func (c *PasswordGenerateCommand) Handle(ctx context.Context, sess *Session, inv Invocation) (Reply, error) {
	if inv.InvokerID != c.OwnerID {
		return Reply{Content: "Only the owner can run this command.", Ephemeral: true},
			models.ErrForbidden
	}

	if err := c.Gate.Verify(ctx, inv.Args["master_password"], "password_generate", inv.InvokerID); err != nil {
		return Reply{Content: "Invalid master password.", Ephemeral: true}, err
	}

	issued, err := c.Credentials.Issue(ctx, inv.InvokerID, models.RoleOwner, inv.InvokerID)
	if err != nil {
		return Reply{Content: "Password generation failed, try again later.", Ephemeral: true}, err
	}

	// Issuance and DM delivery are independent outcomes.
	content := "Password generated and DM sent."
	if !issued.Delivered {
		content = "Password generated, but the DM could not be delivered. Retrieve it from the panel."
	}
	return Reply{Content: content, Ephemeral: true}, nil
}
