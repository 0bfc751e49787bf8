package ledger

import "github.com/go-chi/chi/v5"

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccount)
		r.Get("/tree", h.Tree)
		r.Route("/{accountID}", func(r chi.Router) {
			r.Get("/", h.GetAccount)
			r.Patch("/", h.UpdateAccount)
			r.Delete("/", h.DeleteAccount)
			r.Get("/statement", h.Statement)
		})
	})
	r.Route("/postings", func(r chi.Router) {
		r.Post("/", h.Post)
		r.Post("/reverse", h.Reverse)
		r.Post("/repost", h.Repost)
	})
	r.Post("/chart/seed", h.SeedChart)
}
