package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/application/ordering"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LocationUC *inventory.LocationUseCase
	StockUC    *inventory.StockUseCase
	TransferUC *inventory.TransferUseCase
	OrderUC    *ordering.OrderUseCase
	Gatherer   prometheus.Gatherer // nil no expone /metrics
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	staff := RequireRole(RoleAdmin, RoleOperator)

	locationHandler := NewLocationHandler(deps.LocationUC)
	stockHandler := NewStockHandler(deps.StockUC, deps.LocationUC)
	transferHandler := NewTransferHandler(deps.TransferUC, deps.LocationUC)
	orderHandler := NewOrderHandler(deps.OrderUC)

	// Ubicaciones
	locations := api.Group("/locations", staff)
	locations.Post("/", RequireRole(RoleAdmin), locationHandler.Create)
	locations.Get("/", locationHandler.List)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Get("/:id/stock-items", stockHandler.ListByLocation)
	locations.Get("/:id/transfers", transferHandler.ListByLocation)

	// Registros de stock y ledger
	stock := api.Group("/stock-items", staff)
	stock.Post("/", stockHandler.Create)
	stock.Get("/:id", stockHandler.GetByID)
	stock.Delete("/:id", RequireRole(RoleAdmin), stockHandler.Delete)
	stock.Post("/:id/adjustments", stockHandler.Adjust)
	stock.Put("/:id/backorder", stockHandler.SetBackorderPolicy)
	stock.Get("/:id/movements", stockHandler.Movements)
	stock.Get("/:id/ledger", stockHandler.Ledger)
	stock.Post("/:id/units/:unit_id/damage", stockHandler.DamageUnit)
	stock.Post("/:id/units/:unit_id/return", stockHandler.ReturnUnit)

	// Disponibilidad (también para clientes)
	api.Get("/variants/:id/availability", stockHandler.Availability)
	api.Get("/stock/availability", stockHandler.Availability)

	// Transferencias
	transfers := api.Group("/transfers", staff)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/items", transferHandler.AddItem)
	transfers.Delete("/:id/items/:variant_id", transferHandler.RemoveItem)
	transfers.Post("/:id/ship", transferHandler.Ship)
	transfers.Post("/:id/receive", transferHandler.Receive)
	transfers.Post("/:id/cancel", transferHandler.Cancel)

	// Órdenes: checkout abierto a clientes, postventa solo staff
	orders := api.Group("/orders")
	orders.Post("/", orderHandler.Create)
	orders.Get("/", staff, orderHandler.List)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Post("/:id/items", orderHandler.AddVariant)
	orders.Put("/:id/items/:item_id", orderHandler.SetQuantity)
	orders.Delete("/:id/items/:item_id", orderHandler.RemoveItem)
	orders.Put("/:id/addresses", orderHandler.SetAddresses)
	orders.Put("/:id/shipping-method", orderHandler.SetShippingMethod)
	orders.Post("/:id/promotions", orderHandler.ApplyPromotion)
	orders.Post("/:id/payments", orderHandler.AddPayment)
	orders.Post("/:id/next", orderHandler.Next)
	orders.Post("/:id/adjustments", staff, orderHandler.AddAdjustment)
	orders.Post("/:id/payments/:payment_id/:action", staff, orderHandler.PaymentAction)
	orders.Post("/:id/cancel", staff, orderHandler.Cancel)
	orders.Post("/:id/shipments/:shipment_id/ready", staff, orderHandler.ReadyShipment)
	orders.Post("/:id/shipments/:shipment_id/ship", staff, orderHandler.ShipShipment)
	orders.Post("/:id/shipments/:shipment_id/cancel", staff, orderHandler.CancelShipment)
}
