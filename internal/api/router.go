package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/prenos/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	partiesHandler := &PartiesHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	transfersHandler := &TransfersHandler{DB: db}
	ledgerHandler := &LedgerHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Parties: read (all roles), write (manager+).
	mux.Handle("GET /api/parties", authMW(http.HandlerFunc(partiesHandler.List)))
	mux.Handle("POST /api/parties", authMW(requireManager(http.HandlerFunc(partiesHandler.Create))))
	mux.Handle("GET /api/parties/{id}", authMW(http.HandlerFunc(partiesHandler.Get)))
	mux.Handle("PUT /api/parties/{id}", authMW(requireManager(http.HandlerFunc(partiesHandler.Update))))
	mux.Handle("DELETE /api/parties/{id}", authMW(requireManager(http.HandlerFunc(partiesHandler.Delete))))
	mux.Handle("GET /api/parties/{id}/stock", authMW(http.HandlerFunc(partiesHandler.GetStock)))

	// Items: read (all roles), write (manager+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireManager(http.HandlerFunc(itemsHandler.UploadImage))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("GET /api/items/{id}/history", authMW(http.HandlerFunc(itemsHandler.GetHistory)))

	// Transfers (all roles).
	mux.Handle("POST /api/transfers", authMW(http.HandlerFunc(transfersHandler.Create)))
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("GET /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("POST /api/transfers/{id}/accept", authMW(http.HandlerFunc(transfersHandler.Accept)))
	mux.Handle("POST /api/transfers/{id}/reject", authMW(http.HandlerFunc(transfersHandler.Reject)))
	mux.Handle("PUT /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Update)))

	// Ledger: intake + discrepancies (manager+ for writes).
	mux.Handle("POST /api/ledger/intake", authMW(requireManager(http.HandlerFunc(ledgerHandler.Intake))))
	mux.Handle("GET /api/ledger/discrepancies", authMW(http.HandlerFunc(ledgerHandler.Discrepancies)))
	mux.Handle("POST /api/ledger/discrepancies/{id}/resolve", authMW(requireManager(http.HandlerFunc(ledgerHandler.Resolve))))

	return mux
}
