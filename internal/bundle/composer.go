// internal/bundle/composer.go
package bundle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/pumpportal"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

// Uploader stores token metadata and returns its URI.
type Uploader interface {
	UploadMetadata(ctx context.Context, form pumpportal.MetadataForm) (string, error)
}

// Composer builds launch bundles: one create leg followed by buys for the same token.
type Composer struct {
	uploader    Uploader
	builder     *trade.Builder
	policy      Policy
	newIdentity func() (*wallet.Wallet, error)
	logger      *zap.Logger
}

// NewComposer creates a composer with the given launch policy.
func NewComposer(uploader Uploader, policy Policy, logger *zap.Logger) *Composer {
	return &Composer{
		uploader:    uploader,
		builder:     trade.NewBuilder(trade.DefaultDefaults()),
		policy:      policy,
		newIdentity: wallet.NewTokenIdentity,
		logger:      logger.Named("bundle_composer"),
	}
}

// Policy returns the launch policy.
func (c *Composer) Policy() Policy {
	return c.policy
}

// Compose uploads the metadata, generates the token identity and builds the bundle.
// buyers[0] creates the token; the rest buy it in order.
func (c *Composer) Compose(ctx context.Context, md Metadata, buyers []Buyer) (*Request, error) {
	if err := validate(md, buyers); err != nil {
		return nil, err
	}

	uri, err := c.uploader.UploadMetadata(ctx, pumpportal.MetadataForm{
		Name:             md.Name,
		Symbol:           md.Symbol,
		Description:      md.Description,
		Twitter:          md.Twitter,
		Telegram:         md.Telegram,
		Website:          md.Website,
		ImageName:        md.Image.Name,
		ImageContentType: md.Image.ContentType,
		Image:            md.Image.Data,
	})
	if err != nil {
		c.logger.Warn("Metadata upload failed", zap.String("symbol", md.Symbol), zap.Error(err))
		return nil, &MetadataUploadError{Err: err}
	}
	if strings.TrimSpace(uri) == "" {
		return nil, &MetadataUploadError{Err: pumpportal.ErrMissingMetadataURI}
	}

	token, err := c.newIdentity()
	if err != nil {
		return nil, err
	}
	mint := token.PublicKey.String()

	req := &Request{
		Token:       token,
		MetadataURI: uri,
		Legs:        make([]Leg, 0, len(buyers)),
	}

	for i, b := range buyers {
		params := trade.Params{
			Action:           string(trade.ActionBuy),
			Mint:             mint,
			Amount:           b.Amount.String(),
			DenominatedInSol: &c.policy.DenominatedInSol,
			Slippage:         &c.policy.BuySlippage,
			PriorityFee:      c.policy.BuyPriorityFee.String(),
			Pool:             string(c.policy.Pool),
		}
		if i == 0 {
			params.Action = string(trade.ActionCreate)
			params.Slippage = &c.policy.CreateSlippage
			params.PriorityFee = c.policy.CreatePriorityFee.String()
			params.Metadata = &trade.TokenMetadata{Name: md.Name, Symbol: md.Symbol, URI: uri}
		}

		intent, err := c.builder.Build(params)
		if err != nil {
			token.Discard()
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		req.Legs = append(req.Legs, Leg{Intent: intent, Wallet: b.Wallet})
	}

	c.logger.Info("Bundle composed",
		zap.String("mint", mint),
		zap.String("symbol", md.Symbol),
		zap.Int("legs", len(req.Legs)))
	return req, nil
}

func validate(md Metadata, buyers []Buyer) error {
	if strings.TrimSpace(md.Name) == "" {
		return &trade.ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(md.Symbol) == "" {
		return &trade.ValidationError{Field: "symbol", Reason: "required"}
	}
	if len(buyers) == 0 {
		return &trade.ValidationError{Field: "wallets", Reason: "at least one wallet is required"}
	}
	for i, b := range buyers {
		if b.Wallet == nil {
			return &trade.ValidationError{Field: "wallets", Reason: fmt.Sprintf("wallet %d is missing", i)}
		}
		if !b.Amount.IsPositive() {
			return &trade.ValidationError{Field: "amount", Reason: fmt.Sprintf("wallet %d amount must be positive", i)}
		}
	}
	return nil
}
