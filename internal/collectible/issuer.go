// Package collectible issues and moves the unique non-fungible assets
// that represent events and tickets. The issuer is addressed through an
// interface so the ledger services depend on its contract, not on how
// the assets are minted.
package collectible

import (
	"context"
	"fmt"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/keys"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
)

// IssueParams describes a one-of-one asset: exactly one unit is minted
// to Owner, Creator takes the full attribution share with zero royalty,
// and UpdateAuthority may later rewrite the metadata URI.
type IssueParams struct {
	Scope           domain.Address // record the asset identity is derived from
	Name            string
	Symbol          string
	URI             string
	Creator         domain.Address
	UpdateAuthority domain.Address
	Owner           domain.Address
}

// Issuer is the digital-collectible collaborator contract.
type Issuer interface {
	Issue(ctx context.Context, tx postgresrepo.DB, p IssueParams) (*domain.Collectible, error)
	Transfer(ctx context.Context, tx postgresrepo.DB, mint, from, to domain.Address) error
	UpdateURI(ctx context.Context, tx postgresrepo.DB, mint, authority domain.Address, uri string) error
}

// Ledger is the Postgres-backed issuer. Asset identity (mint, metadata,
// master edition) is derived deterministically from the owning record's
// address, the way metadata accounts hang off their mint.
type Ledger struct {
	store *postgresrepo.Store
}

func NewLedger(store *postgresrepo.Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Issue(ctx context.Context, tx postgresrepo.DB, p IssueParams) (*domain.Collectible, error) {
	const op = "collectible.Ledger.Issue"

	mint := keys.Mint(p.Scope)

	c := &domain.Collectible{
		Mint:            mint,
		MetadataAddress: keys.Metadata(mint),
		MasterEdition:   keys.MasterEdition(mint),
		Name:            p.Name,
		Symbol:          p.Symbol,
		URI:             p.URI,
		Creator:         p.Creator,
		UpdateAuthority: p.UpdateAuthority,
		Owner:           p.Owner,
	}

	if err := l.store.Collectibles().With(tx).Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

func (l *Ledger) Transfer(ctx context.Context, tx postgresrepo.DB, mint, from, to domain.Address) error {
	const op = "collectible.Ledger.Transfer"

	if err := l.store.Collectibles().With(tx).TransferOwner(ctx, mint, from, to); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (l *Ledger) UpdateURI(ctx context.Context, tx postgresrepo.DB, mint, authority domain.Address, uri string) error {
	const op = "collectible.Ledger.UpdateURI"

	if err := l.store.Collectibles().With(tx).UpdateURI(ctx, mint, authority, uri); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
