package store

import (
	"context"
	"errors"
	"time"

	"p2p-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrConcurrentModification = errors.New("concurrent modification detected")

	ErrOfferUnavailable        = errors.New("offer not available")
	ErrSelfRequest             = errors.New("cannot request own offer")
	ErrAmountOutOfBounds       = errors.New("amount out of offer bounds")
	ErrInsufficientRemaining   = errors.New("not enough remaining")
	ErrAlreadyProcessed        = errors.New("request already processed")
	ErrNotAccepted             = errors.New("request is not accepted")
	ErrTransactionNotCompleted = errors.New("transaction not completed")
	ErrAlreadyRated            = errors.New("already rated")
)

// IsStateConflict reports whether err is one of the ledger state-conflict errors.
func IsStateConflict(err error) bool {
	for _, target := range []error{
		ErrOfferUnavailable, ErrSelfRequest, ErrAmountOutOfBounds, ErrInsufficientRemaining,
		ErrAlreadyProcessed, ErrNotAccepted, ErrTransactionNotCompleted, ErrAlreadyRated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// UpsertUserParams carries the Telegram profile of a login.
type UpsertUserParams struct {
	TelegramId   int64
	Username     *string
	FirstName    *string
	LastName     *string
	LanguageCode *string
	PhotoURL     *string
}

// CreateOfferParams contains the validated fields of a new offer.
type CreateOfferParams struct {
	UserId      string
	Type        string
	Crypto      string
	Network     string
	Amount      decimal.Decimal
	Currency    string
	Rate        decimal.Decimal
	MinAmount   decimal.NullDecimal
	MaxAmount   decimal.NullDecimal
	PaymentInfo *string
}

// UpdateOfferParams patches an offer owned by ActorId. Nil / invalid fields are left unchanged.
type UpdateOfferParams struct {
	OfferId     string
	ActorId     string
	Rate        decimal.NullDecimal
	MinAmount   decimal.NullDecimal
	MaxAmount   decimal.NullDecimal
	PaymentInfo *string
	Status      *string
}

// OfferFilter narrows ListOffers. Zero values mean "any".
type OfferFilter struct {
	Type     string
	Status   string
	Crypto   string
	Network  string
	Currency string
	MinRate  decimal.NullDecimal
	MaxRate  decimal.NullDecimal
	UserId   string
	Limit    int
	Offset   int
}

// CreateRequestParams contains a bid against an offer.
type CreateRequestParams struct {
	OfferId     string
	RequesterId string
	Amount      decimal.Decimal
}

// RequestFilter narrows ListRequests. Zero values mean "any".
type RequestFilter struct {
	UserId  string
	OfferId string
	Status  string
	Limit   int
	Offset  int
}

// CreateRatingParams contains a review of a transaction counterparty.
type CreateRatingParams struct {
	TransactionId string
	RaterId       string
	Score         int
	Comment       *string
}

// CreateWalletParams contains a new payment method.
type CreateWalletParams struct {
	UserId    string
	Type      string
	Label     *string
	Value     string
	IsDefault bool
}

// UpdateWalletParams patches a wallet owned by UserId.
type UpdateWalletParams struct {
	WalletId  string
	UserId    string
	Label     *string
	Value     *string
	IsDefault *bool
}

// LedgerStore defines the contract that every backend must satisfy.
// Request transitions check actor and status inside the same atomic unit as the mutation.
type LedgerStore interface {
	// --- Users ---
	UpsertTelegramUser(ctx context.Context, params UpsertUserParams) (*models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByTelegramId(ctx context.Context, telegramId int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error)

	// --- Sessions ---
	CreateSession(ctx context.Context, userId, tokenHash string, expiresAt time.Time) (*models.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	TouchSession(ctx context.Context, sessionId string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// --- Offers ---
	CreateOffer(ctx context.Context, params CreateOfferParams) (*models.Offer, error)
	GetOffer(ctx context.Context, offerId string) (*models.Offer, error)
	ListOffers(ctx context.Context, filter OfferFilter) ([]models.Offer, error)
	UpdateOffer(ctx context.Context, params UpdateOfferParams) (*models.Offer, error)

	// --- Requests ---
	CreateRequest(ctx context.Context, params CreateRequestParams) (*models.Request, error)
	GetRequest(ctx context.Context, requestId string) (*models.Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]models.Request, error)
	AcceptRequest(ctx context.Context, requestId, actorId string) (*models.Request, error)
	RejectRequest(ctx context.Context, requestId, actorId string) (*models.Request, error)
	CompleteRequest(ctx context.Context, requestId, actorId string) (*models.Request, *models.Transaction, error)
	ListStaleAcceptedRequests(ctx context.Context, before time.Time) ([]models.Request, error)

	// --- Transactions ---
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error)

	// --- Ratings ---
	CreateRating(ctx context.Context, params CreateRatingParams) (*models.Rating, error)
	ListRatings(ctx context.Context, userId string, limit int) ([]models.Rating, error)
	GetRatingStats(ctx context.Context, userId string) (*models.RatingStats, error)

	// --- Wallets ---
	ListWallets(ctx context.Context, userId string) ([]models.Wallet, error)
	CreateWallet(ctx context.Context, params CreateWalletParams) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, params UpdateWalletParams) (*models.Wallet, error)
	DeleteWallet(ctx context.Context, userId, walletId string) error

	// --- Notifications ---
	CreateNotification(ctx context.Context, event models.NotificationEvent) (*models.Notification, error)
	ListNotifications(ctx context.Context, userId string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userId string, readAt time.Time) (int64, error)

	// --- Admin ---
	GetStats(ctx context.Context) (*models.Stats, error)

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
