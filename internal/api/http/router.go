package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/security"
	"donorlink-backend/internal/service"
	"donorlink-backend/internal/storage"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	AuthSvc  service.AuthService
	DonorSvc service.DonorService
	BankSvc  service.BankService
	AdminSvc service.AdminService
	DocSvc   service.DocumentService
	Tokens   security.TokenManager

	// FileStore is set only for mock storage deployments; S3 deployments
	// serve files from the bucket directly.
	FileStore storage.Storage
}

func NewRouter(cfg RouterConfig) *mux.Router {
	root := mux.NewRouter()
	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := root.PathPrefix("/api/v1").Subrouter()

	NewAuthHandler(cfg.AuthSvc).Register(api.PathPrefix("/auth").Subrouter())
	NewPublicHandler(cfg.DonorSvc, cfg.Tokens).Register(api.PathPrefix("/public").Subrouter())

	donor := api.PathPrefix("/donor").Subrouter()
	donor.Use(authenticate(cfg.Tokens, domain.RoleDonor))
	NewDonorHandler(cfg.DonorSvc, cfg.DocSvc).Register(donor)

	bank := api.PathPrefix("/bank").Subrouter()
	bank.Use(authenticate(cfg.Tokens, domain.RoleBank))
	NewBankHandler(cfg.BankSvc, cfg.DocSvc).Register(bank)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authenticate(cfg.Tokens, domain.RoleAdmin))
	NewAdminHandler(cfg.AdminSvc).Register(admin)

	if cfg.FileStore != nil {
		NewFileHandler(cfg.FileStore).Register(api)
	}

	return root
}
