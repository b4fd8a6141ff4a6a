package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"moneta/internal/models"
	"moneta/internal/services"
)

// WalletHandler handles wallet-related requests.
type WalletHandler struct {
	walletService services.WalletServicer
	auditService  services.AuditServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService services.WalletServicer, auditService services.AuditServicer) *WalletHandler {
	return &WalletHandler{walletService: walletService, auditService: auditService}
}

// CreateWalletRequest represents the request payload for creating a wallet
type CreateWalletRequest struct {
	Name           string           `json:"name" binding:"required,min=1,max=100"`
	Currency       string           `json:"currency" binding:"omitempty,iso4217"`
	Color          string           `json:"color" binding:"omitempty,hex_color"`
	OpeningBalance *decimal.Decimal `json:"opening_balance" binding:"omitempty,cents"`
}

// UpdateWalletRequest represents the request payload for updating a wallet.
// Balance is not accepted; it moves only through transactions.
type UpdateWalletRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Currency *string `json:"currency" binding:"omitempty,iso4217"`
	Color    *string `json:"color" binding:"omitempty,hex_color"`
}

// ReorderWalletsRequest lists every wallet ID of the user in display order.
type ReorderWalletsRequest struct {
	WalletIDs []string `json:"wallet_ids" binding:"required,min=1,dive,uuid"`
}

// CreateWallet handles the creation of a new wallet
// @Summary     Create a wallet
// @Description Create a wallet. The user's first wallet becomes the main wallet.
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateWalletRequest true "Wallet details"
// @Success     201 {object} models.Wallet "Wallet created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate wallet name"
// @Router      /wallets [post]
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	input := services.CreateWalletInput{Name: req.Name, Currency: req.Currency, Color: req.Color}
	if req.OpeningBalance != nil {
		input.OpeningBalance = *req.OpeningBalance
	}

	wallet, err := h.walletService.CreateWallet(c.Request.Context(), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditEntry{
		Action:     models.AuditCreateWallet,
		ResourceID: wallet.ID,
		IPAddress:  c.ClientIP(),
		Changes:    map[string]any{"name": wallet.Name, "opening_balance": wallet.OpeningBalance.StringFixed(2)},
		WalletIDs:  []string{wallet.ID},
	})

	c.JSON(http.StatusCreated, gin.H{"wallet": wallet})
}

// GetUserWallets lists the user's wallets in display order
// @Summary     List wallets
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Wallet
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /wallets [get]
func (h *WalletHandler) GetUserWallets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallets, err := h.walletService.GetUserWallets(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// GetMainWallet returns the user's main wallet
// @Summary     Get main wallet
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Wallet
// @Failure     404 {object} ErrorResponse "No main wallet"
// @Router      /wallets/main [get]
func (h *WalletHandler) GetMainWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.walletService.GetMainWallet(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// GetWalletByID returns a single wallet
// @Summary     Get wallet by ID
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Wallet ID"
// @Success     200 {object} models.Wallet
// @Failure     400 {object} ErrorResponse "Invalid wallet ID"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /wallets/{id} [get]
func (h *WalletHandler) GetWalletByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.walletService.GetWalletByID(c.Request.Context(), userID, walletID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// UpdateWallet updates a wallet's name, currency or color
// @Summary     Update wallet
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Wallet ID"
// @Param       request body UpdateWalletRequest true "Fields to update"
// @Success     200 {object} models.Wallet
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Failure     409 {object} ErrorResponse "Duplicate wallet name"
// @Router      /wallets/{id} [put]
func (h *WalletHandler) UpdateWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	wallet, err := h.walletService.UpdateWallet(c.Request.Context(), userID, walletID, services.UpdateWalletInput{
		Name:     req.Name,
		Currency: req.Currency,
		Color:    req.Color,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditEntry{Action: models.AuditUpdateWallet, ResourceID: walletID, IPAddress: c.ClientIP()})

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// SetMainWallet marks a wallet as the user's main wallet
// @Summary     Set main wallet
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Wallet ID"
// @Success     200 {object} models.Wallet
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /wallets/{id}/main [put]
func (h *WalletHandler) SetMainWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.walletService.SetMainWallet(c.Request.Context(), userID, walletID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditEntry{Action: models.AuditSetMainWallet, ResourceID: walletID, IPAddress: c.ClientIP()})

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// ReorderWallets stores a new display order
// @Summary     Reorder wallets
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReorderWalletsRequest true "All wallet IDs in the new order"
// @Success     200 {array}  models.Wallet
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Order does not match the user's wallets"
// @Router      /wallets/order [put]
func (h *WalletHandler) ReorderWallets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReorderWalletsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	wallets, err := h.walletService.ReorderWallets(c.Request.Context(), userID, req.WalletIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditEntry{
		Action:    models.AuditReorderWallets,
		IPAddress: c.ClientIP(),
		Changes:   map[string]any{"wallet_ids": req.WalletIDs},
	})

	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// DeleteWallet deletes a wallet that has no transactions
// @Summary     Delete wallet
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Wallet ID"
// @Success     200 {object} MessageResponse "Wallet deleted"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Failure     409 {object} ErrorResponse "Wallet has transactions"
// @Router      /wallets/{id} [delete]
func (h *WalletHandler) DeleteWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.walletService.DeleteWallet(c.Request.Context(), userID, walletID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditEntry{Action: models.AuditDeleteWallet, ResourceID: walletID, IPAddress: c.ClientIP()})

	c.JSON(http.StatusOK, MessageResponse{Message: "Wallet deleted successfully"})
}

// VerifyBalance recomputes a wallet's balance from its transactions
// @Summary     Verify wallet balance
// @Description Compare the stored balance with opening balance plus the signed sum of transactions
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Wallet ID"
// @Success     200 {object} services.BalanceCheck
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /wallets/{id}/balance-check [get]
func (h *WalletHandler) VerifyBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	check, err := h.walletService.VerifyBalance(c.Request.Context(), userID, walletID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance_check": check})
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}
