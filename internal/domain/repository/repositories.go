package repository

// Repositories agrupa los repositorios atados a una misma unidad de trabajo (transacción).
type Repositories struct {
	StockItems StockItemRepository
	Movements  StockMovementRepository
	Transfers  StockTransferRepository
	Orders     OrderRepository
	Locations  StockLocationRepository
}
