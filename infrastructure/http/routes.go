package http

import (
	"fridge/frontend/additem"
	"fridge/frontend/inventory"

	"github.com/go-chi/chi/v5"
)

// RegisterAddItemRoutes registers the scan, manual entry and bulk upload flows.
func (s *Server) RegisterAddItemRoutes(r chi.Router) chi.Router {
	r.Get("/add", additem.AddItemPageQueryHandler(s.Registry))

	r.Route("/add/scan", func(r chi.Router) {
		r.Get("/status", additem.ScanStatusQueryHandler(s.Registry))
		r.Post("/open", additem.OpenScannerCommandHandler(s.Registry))
		r.Post("/stop", additem.StopScannerCommandHandler(s.Registry))
		r.Post("/close", additem.CloseScannerCommandHandler(s.Registry))
		r.Post("/manual", additem.ScanToManualCommandHandler(s.Registry))
		r.Post("/frame", additem.ScanFrameCommandHandler(s.Registry))
	})
	r.Get("/add/barcode/{code}.png", additem.ScannedBarcodeImageQueryHandler())

	r.Post("/add/manual/open", additem.OpenManualCommandHandler(s.Registry))
	r.Post("/add/manual", additem.SubmitManualCommandHandler(s.Registry))
	r.Post("/add/manual/close", additem.CloseManualCommandHandler(s.Registry))

	r.Post("/add/upload/open", additem.OpenUploadCommandHandler(s.Registry))
	r.Post("/add/upload", additem.UploadCommandHandler(s.Registry, s.UploadMaxBytes))
	r.Post("/add/upload/close", additem.CloseUploadCommandHandler(s.Registry))
	return r
}

// RegisterInventoryRoutes registers the household fridge list, labels and JSON API.
func (s *Server) RegisterInventoryRoutes(r chi.Router) chi.Router {
	r.Get("/fridge", inventory.FridgePageQueryHandler(s.Store))
	r.Get("/fridge/export.csv", inventory.ExportCSVQueryHandler(s.Store))
	r.Get("/fridge/labels.pdf", inventory.AllLabelsPDFQueryHandler(s.Store))
	r.Get("/fridge/{id}/label.pdf", inventory.ItemLabelPDFQueryHandler(s.Store))

	r.Get("/api/fridge/items", inventory.ListItemsAPIQueryHandler(s.Store))
	r.Post("/api/fridge/items", inventory.CreateItemAPICommandHandler(s.Store))
	return r
}
