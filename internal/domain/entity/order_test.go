package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newOrder(t *testing.T) *entity.Order {
	t.Helper()
	o, err := entity.CreateOrder("store-1", "cop", "user-1", "cliente@example.com", testNow)
	require.NoError(t, err)
	return o
}

func variant(id string, price int64) entity.Variant {
	return entity.Variant{ID: id, SKU: "SKU-" + id, Name: "Producto " + id, PriceCents: price, Currency: "COP"}
}

func address() *entity.Address {
	return &entity.Address{FirstName: "Ana", Line1: "Calle 1 # 2-3", City: "Bogotá", Country: "CO"}
}

func planFor(o *entity.Order, locationID string) *entity.FulfillmentPlan {
	pkg := entity.FulfillmentPackage{StockLocationID: locationID}
	for _, li := range o.LineItems {
		pkg.Items = append(pkg.Items, entity.PlannedItem{VariantID: li.VariantID, Quantity: li.Quantity})
	}
	return &entity.FulfillmentPlan{Packages: []entity.FulfillmentPackage{pkg}}
}

// orderAtPayment lleva una orden con una línea hasta el estado PAYMENT.
func orderAtPayment(t *testing.T) *entity.Order {
	t.Helper()
	o := newOrder(t)
	_, err := o.AddVariant(variant("V1", 1000), 2, testNow, nil)
	require.NoError(t, err)
	require.NoError(t, o.Next(testNow))
	require.NoError(t, o.SetAddresses(address(), address(), testNow))
	require.NoError(t, o.BuildShipments(planFor(o, "loc-1"), testNow))
	require.NoError(t, o.Next(testNow))
	require.NoError(t, o.SetShippingMethod(entity.ShippingMethod{ID: "std", Name: "Estándar", CostCents: 500}, nil, testNow))
	require.NoError(t, o.Next(testNow))
	require.Equal(t, entity.OrderPayment, o.State)
	return o
}

// ──────────────────────────────────────────────────────────────────────────────
// Totales
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateOrder(t *testing.T) {
	o := newOrder(t)
	assert.Equal(t, entity.OrderCart, o.State)
	assert.Equal(t, "COP", o.Currency)
	assert.NotEmpty(t, o.Number)
	assert.Zero(t, o.TotalCents)
	require.Len(t, o.Histories, 1)

	_, err := entity.CreateOrder("", "COP", "", "", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = entity.CreateOrder("s", "PESOS", "", "", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOrder_IntegridadDelTotal(t *testing.T) {
	o := newOrder(t)
	_, err := o.AddVariant(variant("V1", 1000), 2, testNow, nil)
	require.NoError(t, err)
	_, err = o.AddManualAdjustment(-300, "descuento cliente", "", testNow)
	require.NoError(t, err)

	o.RecalculateTotals()
	assert.Equal(t, int64(1700), o.TotalCents)

	_, err = o.AddVariant(variant("V2", 500), 1, testNow, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2200), o.TotalCents)
	assert.Equal(t, int64(2500), o.ItemTotalCents)
	assert.Equal(t, int64(-300), o.AdjustmentTotalCents)
}

func TestOrder_AddVariantFusionaYOverride(t *testing.T) {
	o := newOrder(t)
	_, err := o.AddVariant(variant("V1", 1000), 1, testNow, nil)
	require.NoError(t, err)
	override := int64(800)
	li, err := o.AddVariant(variant("V1", 1000), 2, testNow, &override)
	require.NoError(t, err)

	require.Len(t, o.LineItems, 1)
	assert.Equal(t, 3, li.Quantity)
	assert.Equal(t, int64(800), li.PriceCents)
	assert.Equal(t, "SKU-V1", li.SKU)
	assert.Equal(t, int64(2400), o.TotalCents)

	_, err = o.AddVariant(entity.Variant{ID: "V9", PriceCents: 1, Currency: "USD"}, 1, testNow, nil)
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
	_, err = o.AddVariant(variant("V1", 1000), 0, testNow, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestOrder_CantidadYEliminarLinea(t *testing.T) {
	o := newOrder(t)
	li, err := o.AddVariant(variant("V1", 1000), 1, testNow, nil)
	require.NoError(t, err)

	require.NoError(t, o.SetLineItemQuantity(li.ID, 4, testNow))
	assert.Equal(t, int64(4000), o.TotalCents)
	require.NoError(t, o.SetLineItemQuantity(li.ID, 0, testNow))
	assert.Empty(t, o.LineItems)
	assert.Zero(t, o.TotalCents)
	assert.ErrorIs(t, o.RemoveLineItem(li.ID, testNow), domain.ErrLineItemNotFound)
}

func TestOrder_AjusteDeLinea(t *testing.T) {
	o := newOrder(t)
	li, err := o.AddVariant(variant("V1", 1000), 2, testNow, nil)
	require.NoError(t, err)

	_, err = o.AddManualAdjustment(-150, "daño empaque", li.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1850), o.TotalCents)
	assert.Equal(t, int64(1850), o.LineItems[0].TotalCents)

	_, err = o.AddManualAdjustment(0, "nada", "", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = o.AddManualAdjustment(10, "x", "no-existe", testNow)
	assert.ErrorIs(t, err, domain.ErrLineItemNotFound)
}

func TestOrder_PromocionReemplazaAjustesPrevios(t *testing.T) {
	o := newOrder(t)
	li, err := o.AddVariant(variant("V1", 1000), 2, testNow, nil)
	require.NoError(t, err)
	promo := entity.Promotion{ID: "P1", Code: "DESC10", Name: "10%"}

	result := entity.CalculationResult{Adjustments: []entity.PromotionAdjustment{
		{LineItemID: li.ID, AmountCents: -200},
	}}
	require.NoError(t, o.ApplyPromotion(promo, result, testNow))
	require.NoError(t, o.ApplyPromotion(promo, result, testNow))
	assert.Equal(t, int64(1800), o.TotalCents, "reaplicar no duplica el descuento")

	orderLevel := entity.CalculationResult{Adjustments: []entity.PromotionAdjustment{{AmountCents: -50}}}
	require.NoError(t, o.ApplyPromotion(promo, orderLevel, testNow))
	assert.Equal(t, int64(1950), o.TotalCents)
	assert.Len(t, o.AllAdjustments(), 1)
}

func TestOrder_EnvioComoAjuste(t *testing.T) {
	o := newOrder(t)
	_, err := o.AddVariant(variant("V1", 1000), 1, testNow, nil)
	require.NoError(t, err)

	require.NoError(t, o.SetShippingMethod(entity.ShippingMethod{ID: "std", CostCents: 500}, nil, testNow))
	free := int64(0)
	require.NoError(t, o.SetShippingMethod(entity.ShippingMethod{ID: "exp", CostCents: 900}, &free, testNow))

	assert.Equal(t, "exp", o.ShippingMethodID)
	assert.Len(t, o.Adjustments, 1, "solo queda un ajuste de envío")
	assert.Equal(t, int64(1000), o.TotalCents)
	assert.Zero(t, o.ShippingTotalCents)
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados
// ──────────────────────────────────────────────────────────────────────────────

func TestOrderNext_Guardas(t *testing.T) {
	o := newOrder(t)
	err := o.Next(testNow)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
	assert.Equal(t, entity.OrderCart, o.State, "un guard fallido no cambia el estado")

	_, err = o.AddVariant(variant("V1", 1000), 1, testNow, nil)
	require.NoError(t, err)
	require.NoError(t, o.Next(testNow))
	assert.Equal(t, entity.OrderAddress, o.State)

	assert.ErrorIs(t, o.Next(testNow), domain.ErrMissingAddress)
	require.NoError(t, o.SetAddresses(address(), address(), testNow))
	require.NoError(t, o.Next(testNow))
	assert.Equal(t, entity.OrderDelivery, o.State)

	assert.ErrorIs(t, o.Next(testNow), domain.ErrMissingShippingMethod)
	require.NoError(t, o.SetShippingMethod(entity.ShippingMethod{ID: "std", CostCents: 0}, nil, testNow))
	assert.ErrorIs(t, o.Next(testNow), domain.ErrNoShipments)
	require.NoError(t, o.BuildShipments(planFor(o, "loc-1"), testNow))
	require.NoError(t, o.Next(testNow))
	assert.Equal(t, entity.OrderPayment, o.State)
}

func TestOrderNext_HistorialRegistraTransiciones(t *testing.T) {
	o := orderAtPayment(t)
	var transitions [][2]entity.OrderState
	for _, h := range o.Histories {
		if h.FromState != h.ToState {
			transitions = append(transitions, [2]entity.OrderState{h.FromState, h.ToState})
		}
	}
	assert.Equal(t, [][2]entity.OrderState{
		{entity.OrderCart, entity.OrderAddress},
		{entity.OrderAddress, entity.OrderDelivery},
		{entity.OrderDelivery, entity.OrderPayment},
	}, transitions)
	assert.Len(t, o.NewHistories(), len(o.Histories))
	o.MarkPersisted()
	assert.Empty(t, o.NewHistories())
}

func TestOrderNext_PagoInsuficiente(t *testing.T) {
	o := orderAtPayment(t)
	assert.Equal(t, int64(2500), o.TotalCents)

	p, err := o.AddPayment("card", 2000, testNow)
	require.NoError(t, err)
	require.NoError(t, o.CompletePayment(p.ID, testNow))
	err = o.Next(testNow)
	assert.ErrorIs(t, err, domain.ErrPaymentInsufficient)
	assert.Equal(t, entity.OrderPayment, o.State)

	p2, err := o.AddPayment("cash", 500, testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, o.Next(testNow), domain.ErrPaymentInsufficient, "un pago pendiente no cuenta")
	require.NoError(t, o.CompletePayment(p2.ID, testNow))
	require.NoError(t, o.Next(testNow))
	assert.Equal(t, entity.OrderConfirm, o.State)

	require.NoError(t, o.Next(testNow))
	assert.Equal(t, entity.OrderComplete, o.State)
	assert.NotNil(t, o.CompletedAt)
	assert.ErrorIs(t, o.Next(testNow), domain.ErrInvalidTransition)
}

func TestPayment_Transiciones(t *testing.T) {
	o := orderAtPayment(t)
	p, err := o.AddPayment("card", 100, testNow)
	require.NoError(t, err)

	require.NoError(t, o.FailPayment(p.ID, testNow))
	assert.ErrorIs(t, o.CompletePayment(p.ID, testNow), domain.ErrInvalidTransition)

	p2, err := o.AddPayment("card", 2500, testNow)
	require.NoError(t, err)
	require.NoError(t, o.CompletePayment(p2.ID, testNow))
	assert.Equal(t, int64(2500), o.PaymentTotalCents)
	require.NoError(t, o.RefundPayment(p2.ID, testNow))
	assert.Zero(t, o.PaymentTotalCents)
	assert.ErrorIs(t, o.VoidPayment("nope", testNow), domain.ErrPaymentNotFound)

	_, err = o.AddPayment("card", 0, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestBuildShipments_RepartePorUbicacion(t *testing.T) {
	o := newOrder(t)
	_, err := o.AddVariant(variant("V1", 100), 5, testNow, nil)
	require.NoError(t, err)
	plan := &entity.FulfillmentPlan{Packages: []entity.FulfillmentPackage{
		{StockLocationID: "A", Items: []entity.PlannedItem{{VariantID: "V1", Quantity: 3}}},
		{StockLocationID: "B", Items: []entity.PlannedItem{{VariantID: "V1", Quantity: 2}}},
	}}
	require.NoError(t, o.BuildShipments(plan, testNow))
	require.Len(t, o.Shipments, 2)
	assert.Equal(t, 3, o.Shipments[0].Items[0].Quantity)
	assert.Equal(t, "B", o.Shipments[1].StockLocationID)

	short := &entity.FulfillmentPlan{Packages: plan.Packages[:1]}
	assert.ErrorIs(t, o.BuildShipments(short, testNow), domain.ErrUnfulfillableItems)
	unf := &entity.FulfillmentPlan{Unfulfilled: map[string]int{"V1": 1}}
	assert.ErrorIs(t, o.BuildShipments(unf, testNow), domain.ErrUnfulfillableItems)
}

func TestShipment_ListoYDespachado(t *testing.T) {
	o := orderAtPayment(t)
	sh := o.Shipments[0]
	assert.ErrorIs(t, o.ReadyShipment(sh.ID, testNow), domain.ErrInvalidTransition, "la orden debe estar completa")

	p, err := o.AddPayment("card", o.TotalCents, testNow)
	require.NoError(t, err)
	require.NoError(t, o.CompletePayment(p.ID, testNow))
	require.NoError(t, o.Next(testNow))
	require.NoError(t, o.Next(testNow))

	assert.ErrorIs(t, o.MarkShipmentShipped(sh.ID, "TRK", testNow), domain.ErrInvalidTransition)
	require.NoError(t, o.ReadyShipment(sh.ID, testNow))
	require.NoError(t, o.MarkShipmentShipped(sh.ID, "TRK-1", testNow))
	assert.Equal(t, entity.ShipmentShipped, o.Shipments[0].State)
	assert.Equal(t, "TRK-1", o.Shipments[0].TrackingNumber)

	err = o.Cancel("cliente", testNow)
	assert.ErrorIs(t, err, domain.ErrShipmentAlreadyShipped)
	assert.Equal(t, entity.OrderComplete, o.State)
}

func TestOrderCancel(t *testing.T) {
	o := orderAtPayment(t)
	p, err := o.AddPayment("card", 100, testNow)
	require.NoError(t, err)

	require.NoError(t, o.Cancel("cliente desiste", testNow))
	assert.Equal(t, entity.OrderCanceled, o.State)
	assert.Equal(t, entity.PaymentVoided, o.Payment(p.ID).State)
	assert.Equal(t, entity.ShipmentCanceled, o.Shipments[0].State)
	last := o.Histories[len(o.Histories)-1]
	assert.Equal(t, entity.OrderPayment, last.FromState)
	assert.Equal(t, entity.OrderCanceled, last.ToState)
	assert.Equal(t, "cliente desiste", last.Context["reason"])

	assert.ErrorIs(t, o.Cancel("", testNow), domain.ErrInvalidTransition)
	_, err = o.AddManualAdjustment(1, "x", "", testNow)
	assert.ErrorIs(t, err, domain.ErrOrderNotEditable)
}

func TestOrderCancel_DesdeCompletaSinDespacho(t *testing.T) {
	o := orderAtPayment(t)
	p, err := o.AddPayment("card", o.TotalCents, testNow)
	require.NoError(t, err)
	require.NoError(t, o.CompletePayment(p.ID, testNow))
	require.NoError(t, o.Next(testNow))
	require.NoError(t, o.Next(testNow))
	require.Equal(t, entity.OrderComplete, o.State)
	require.True(t, o.IsTerminal())

	require.NoError(t, o.ReadyShipment(o.Shipments[0].ID, testNow))
	require.NoError(t, o.Cancel("sin stock físico", testNow))
	assert.Equal(t, entity.OrderCanceled, o.State)
	assert.Equal(t, entity.ShipmentCanceled, o.Shipments[0].State)
	assert.Equal(t, entity.PaymentCompleted, o.Payment(p.ID).State, "solo se anulan pagos pendientes")
	last := o.Histories[len(o.Histories)-1]
	assert.Equal(t, entity.OrderComplete, last.FromState)
}

func TestSetAddresses_ReportaTodasLasFaltas(t *testing.T) {
	o := newOrder(t)
	err := o.SetAddresses(nil, &entity.Address{City: "Cali"}, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingAddress)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	assert.Nil(t, o.ShippingAddress)
}

func TestOrderClone_EsIndependiente(t *testing.T) {
	o := orderAtPayment(t)
	c := o.Clone()
	c.Shipments[0].Items[0].Quantity = 99
	c.Histories[len(c.Histories)-1].Description = "x"
	assert.NotEqual(t, 99, o.Shipments[0].Items[0].Quantity)
	assert.NotEqual(t, "x", o.Histories[len(o.Histories)-1].Description)
}

func TestShipment_CancelarYVolverAPendiente(t *testing.T) {
	o := orderAtPayment(t)
	p, err := o.AddPayment("card", o.TotalCents, testNow)
	require.NoError(t, err)
	require.NoError(t, o.CompletePayment(p.ID, testNow))
	require.NoError(t, o.Next(testNow))
	require.NoError(t, o.Next(testNow))
	sh := o.Shipments[0]

	require.NoError(t, o.ReadyShipment(sh.ID, testNow))
	require.NoError(t, o.UnreadyShipment(sh.ID, testNow))
	assert.Equal(t, entity.ShipmentPending, o.Shipments[0].State)

	require.NoError(t, o.CancelShipment(sh.ID, testNow))
	assert.Equal(t, entity.ShipmentCanceled, o.Shipments[0].State)
	assert.ErrorIs(t, o.CancelShipment(sh.ID, testNow), domain.ErrInvalidTransition)
	assert.ErrorIs(t, o.CancelShipment("nope", testNow), domain.ErrShipmentNotFound)
}
