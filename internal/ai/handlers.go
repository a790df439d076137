package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"support-agent/internal/core"
	"support-agent/internal/kb"
)

// KnowledgeSearcher is the slice of the knowledge base the tools need.
// A nil searcher means retrieval is unavailable and the tool reports that.
type KnowledgeSearcher interface {
	SearchByText(ctx context.Context, query string, opts kb.SearchOptions) ([]kb.Document, error)
}

// Services bundles the domain dependencies behind the support tools.
type Services struct {
	Products core.ProductService
	Orders   core.OrderService
	Shipping core.ShippingService
	Tickets  core.TicketService
	Returns  core.ReturnService
	KB       KnowledgeSearcher
}

// NewSupportToolset registers the nine customer-support tools.
func NewSupportToolset(svc Services, log *slog.Logger) *Toolset {
	t := NewToolset(log)
	h := &handlers{svc: svc}

	t.Register(ToolDefinition{
		Name:        "draft_order",
		Description: "Draft an order and validate all required information before creating it. Use this FIRST before create_order to check what information is needed from the customer.",
		InputSchema: reflectSchema(draftOrderArgs{}),
		Handler:     h.draftOrder,
	})
	t.Register(ToolDefinition{
		Name:        "create_order",
		Description: "Create a new customer order with products and shipping information. ONLY use this after draft_order confirms all information is complete.",
		InputSchema: reflectSchema(createOrderArgs{}),
		Handler:     h.createOrder,
	})
	t.Register(ToolDefinition{
		Name:        "order_status",
		Description: "Check the status of an existing order",
		InputSchema: reflectSchema(orderStatusArgs{}),
		Handler:     h.orderStatus,
	})
	t.Register(ToolDefinition{
		Name:        "product_catalog",
		Description: "Browse the product catalog with optional filtering by category, search query, and price",
		InputSchema: reflectSchema(productCatalogArgs{}),
		Handler:     h.productCatalog,
	})
	t.Register(ToolDefinition{
		Name:        "check_inventory",
		Description: "Check the current inventory/stock level for a specific product",
		InputSchema: reflectSchema(checkInventoryArgs{}),
		Handler:     h.checkInventory,
	})
	t.Register(ToolDefinition{
		Name:        "estimate_shipping",
		Description: "Estimate shipping cost and delivery time based on destination and package details",
		InputSchema: reflectSchema(estimateShippingArgs{}),
		Handler:     h.estimateShipping,
	})
	t.Register(ToolDefinition{
		Name:        "create_support_ticket",
		Description: "Create a new customer support ticket for issues or questions",
		InputSchema: reflectSchema(createTicketArgs{}),
		Handler:     h.createSupportTicket,
	})
	t.Register(ToolDefinition{
		Name:        "initiate_return",
		Description: "Initiate a return request for a completed order. IMPORTANT: Use product_ids and quantities to return SPECIFIC items only. If these are not provided, the ENTIRE order will be returned.",
		InputSchema: reflectSchema(initiateReturnArgs{}),
		Handler:     h.initiateReturn,
	})
	t.Register(ToolDefinition{
		Name:        "search_knowledge_base",
		Description: "Search the knowledge base for helpful articles and information using semantic similarity",
		InputSchema: reflectSchema(searchKnowledgeBaseArgs{}),
		Handler:     h.searchKnowledgeBase,
	})
	return t
}

type handlers struct {
	svc Services
}

type draftOrderArgs struct {
	CustomerName  string  `json:"customer_name,omitempty" jsonschema:"description=Full name of the customer (if provided)"`
	CustomerEmail string  `json:"customer_email,omitempty" jsonschema:"description=Email address of the customer (if provided)"`
	CustomerPhone string  `json:"customer_phone,omitempty" jsonschema:"description=Phone number of the customer (if provided)"`
	StreetAddress string  `json:"street_address,omitempty" jsonschema:"description=Street address including house number and street name (if provided)"`
	City          string  `json:"city,omitempty" jsonschema:"description=City name (if provided)"`
	State         string  `json:"state,omitempty" jsonschema:"description=State name or abbreviation (if provided)"`
	ZipCode       string  `json:"zip_code,omitempty" jsonschema:"description=ZIP or postal code (if provided)"`
	ProductIDs    []int   `json:"product_ids,omitempty" jsonschema:"description=List of product IDs to order (if provided)"`
	Quantities    []int   `json:"quantities,omitempty" jsonschema:"description=List of quantities for each product (if provided)"`
}

// draftOrderFieldNames maps argument names to customer-friendly phrasing for
// the "missing information" message.
var draftOrderFieldNames = map[string]string{
	"customer_name":  "customer's full name",
	"customer_email": "customer's email address",
	"customer_phone": "customer's phone number",
	"street_address": "street address",
	"city":           "city",
	"state":          "state",
	"zip_code":       "ZIP code",
	"product_ids":    "products to order",
	"quantities":     "quantities for products",
}

func (h *handlers) draftOrder(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in draftOrderArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	var missing []string
	provided := map[string]any{}

	checkField := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		} else {
			provided[name] = value
		}
	}
	checkField("customer_name", in.CustomerName)
	checkField("customer_email", in.CustomerEmail)
	checkField("customer_phone", in.CustomerPhone)
	checkField("street_address", in.StreetAddress)
	checkField("city", in.City)
	checkField("state", in.State)
	checkField("zip_code", in.ZipCode)

	notReady := func(errMsg string) map[string]any {
		return map[string]any{
			"success":         false,
			"ready_to_order":  false,
			"error":           errMsg,
			"missing_fields":  missing,
			"provided_fields": provided,
		}
	}

	switch {
	case len(in.ProductIDs) == 0:
		missing = append(missing, "product_ids")
	case len(in.Quantities) == 0:
		missing = append(missing, "quantities")
	case len(in.ProductIDs) != len(in.Quantities):
		return notReady("Number of products and quantities must match"), nil
	default:
		var productsInfo []map[string]any
		var totalCost, totalWeight decimal.Decimal

		for i, productID := range in.ProductIDs {
			quantity := in.Quantities[i]

			product, err := h.svc.Products.GetProduct(ctx, productID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return notReady(fmt.Sprintf("Product ID %d not found", productID)), nil
				}
				return nil, err
			}
			if product.StockQuantity < quantity {
				return notReady(fmt.Sprintf("Insufficient stock for %s. Requested: %d, Available: %d",
					product.Name, quantity, product.StockQuantity)), nil
			}

			qty := decimal.NewFromInt(int64(quantity))
			itemTotal := product.Price.Mul(qty)
			totalCost = totalCost.Add(itemTotal)
			totalWeight = totalWeight.Add(product.WeightLbs.Mul(qty))

			productsInfo = append(productsInfo, map[string]any{
				"product_id":      productID,
				"name":            product.Name,
				"quantity":        quantity,
				"unit_price":      product.Price,
				"item_total":      itemTotal,
				"stock_available": product.StockQuantity,
			})
		}

		provided["products"] = productsInfo
		provided["total_cost"] = totalCost
		provided["total_weight"] = totalWeight
	}

	if len(missing) == 0 {
		return map[string]any{
			"success":        true,
			"ready_to_order": true,
			"message":        "All required information collected. Ready to create order.",
			"order_summary":  provided,
			"next_step":      "Call create_order with the complete information to finalize the order.",
		}, nil
	}

	descriptions := make([]string, len(missing))
	for i, f := range missing {
		descriptions[i] = draftOrderFieldNames[f]
	}
	return map[string]any{
		"success":         true,
		"ready_to_order":  false,
		"message":         "Missing required information: " + strings.Join(descriptions, ", "),
		"missing_fields":  missing,
		"provided_fields": provided,
		"next_step":       "Ask the customer for the missing information.",
	}, nil
}

type createOrderArgs struct {
	CustomerName  string `json:"customer_name" jsonschema:"description=Full name of the customer"`
	CustomerEmail string `json:"customer_email" jsonschema:"description=Email address of the customer"`
	CustomerPhone string `json:"customer_phone" jsonschema:"description=Phone number of the customer"`
	StreetAddress string `json:"street_address" jsonschema:"description=Street address including house number and street name"`
	City          string `json:"city" jsonschema:"description=City name"`
	State         string `json:"state" jsonschema:"description=State name or abbreviation"`
	ZipCode       string `json:"zip_code" jsonschema:"description=ZIP or postal code"`
	ProductIDs    []int  `json:"product_ids" jsonschema:"description=List of product IDs to order"`
	Quantities    []int  `json:"quantities" jsonschema:"description=List of quantities for each product (must match length of product_ids)"`
}

func (h *handlers) createOrder(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in createOrderArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if len(in.ProductIDs) != len(in.Quantities) {
		return failure("Product IDs and quantities must have the same length"), nil
	}

	orderID, err := h.svc.Orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		StreetAddress: in.StreetAddress,
		City:          in.City,
		State:         in.State,
		ZipCode:       in.ZipCode,
		ProductIDs:    in.ProductIDs,
		Quantities:    in.Quantities,
	})
	if err != nil {
		return nil, err
	}

	order, err := h.svc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":  true,
		"order_id": orderID,
		"order":    order,
		"message":  fmt.Sprintf("Order #%d created successfully for %s", orderID, in.CustomerName),
	}, nil
}

type orderStatusArgs struct {
	OrderID int `json:"order_id" jsonschema:"description=The unique order ID"`
}

func (h *handlers) orderStatus(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in orderStatusArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	order, err := h.svc.Orders.GetOrderWithProductNames(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return failure(fmt.Sprintf("Order #%d not found", in.OrderID)), nil
		}
		return nil, err
	}

	return map[string]any{
		"success":       true,
		"order_id":      in.OrderID,
		"status":        order.Status,
		"order_details": order,
		"message":       fmt.Sprintf("Order #%d status: %s", in.OrderID, order.Status),
	}, nil
}

type productCatalogArgs struct {
	Category      string   `json:"category,omitempty" jsonschema:"description=Filter products by category (e.g. electronics or clothing or home)"`
	SearchQuery   string   `json:"search_query,omitempty" jsonschema:"description=Search products by name or description"`
	Price         *float64 `json:"price,omitempty" jsonschema:"description=Price value to filter by (used together with price_operator)"`
	PriceOperator string   `json:"price_operator,omitempty" jsonschema:"enum=gt,enum=lt,enum=eq,description=Comparison operator for the price filter"`
}

func (h *handlers) productCatalog(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in productCatalogArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	filter := core.CatalogFilter{
		Category:    in.Category,
		SearchQuery: in.SearchQuery,
		PriceOp:     in.PriceOperator,
	}
	if in.Price != nil {
		price := decimal.NewFromFloat(*in.Price)
		filter.Price = &price
	}

	products, err := h.svc.Products.SearchCatalog(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []core.Product{}
	}

	return map[string]any{
		"success":  true,
		"count":    len(products),
		"products": products,
		"message":  fmt.Sprintf("Found %d product(s)", len(products)),
	}, nil
}

type checkInventoryArgs struct {
	ProductID int `json:"product_id" jsonschema:"description=The unique product ID"`
}

func (h *handlers) checkInventory(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in checkInventoryArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	product, err := h.svc.Products.GetProduct(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return failure(fmt.Sprintf("Product #%d not found", in.ProductID)), nil
		}
		return nil, err
	}

	inStock := product.StockQuantity > 0
	message := fmt.Sprintf("%s: Out of stock", product.Name)
	if inStock {
		message = fmt.Sprintf("%s: %d units in stock", product.Name, product.StockQuantity)
	}

	return map[string]any{
		"success":        true,
		"product_id":     in.ProductID,
		"product_name":   product.Name,
		"stock_quantity": product.StockQuantity,
		"in_stock":       inStock,
		"message":        message,
	}, nil
}

type estimateShippingArgs struct {
	DestinationZip string  `json:"destination_zip" jsonschema:"description=Destination ZIP/postal code"`
	Weight         float64 `json:"weight" jsonschema:"description=Package weight in pounds"`
}

func (h *handlers) estimateShipping(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in estimateShippingArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	weight := decimal.NewFromFloat(in.Weight)
	estimates, err := h.svc.Shipping.EstimateShipping(ctx, in.DestinationZip, weight)
	if err != nil {
		if errors.Is(err, core.ErrNoShippingRates) {
			return failure(fmt.Sprintf("No shipping rates found for ZIP code: %s", in.DestinationZip)), nil
		}
		return nil, err
	}

	options := make([]string, len(estimates))
	for i, est := range estimates {
		options[i] = fmt.Sprintf("  - %s %s: $%s (%d days)",
			est.Carrier, est.ServiceType, est.Cost.StringFixed(2), est.EstimatedDays)
	}

	return map[string]any{
		"success":         true,
		"destination_zip": in.DestinationZip,
		"weight_lbs":      in.Weight,
		"estimates":       estimates,
		"count":           len(estimates),
		"message": fmt.Sprintf("Shipping options to %s for %v lbs:\n%s",
			in.DestinationZip, in.Weight, strings.Join(options, "\n")),
	}, nil
}

type createTicketArgs struct {
	CustomerName     string `json:"customer_name" jsonschema:"description=Name of the customer"`
	CustomerEmail    string `json:"customer_email" jsonschema:"description=Email address of the customer"`
	IssueDescription string `json:"issue_description" jsonschema:"description=Detailed description of the issue or question"`
	Priority         string `json:"priority" jsonschema:"enum=low,enum=medium,enum=high,enum=urgent,description=Priority level of the ticket"`
}

func (h *handlers) createSupportTicket(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in createTicketArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	ticketID, err := h.svc.Tickets.CreateTicket(ctx, in.CustomerName, in.CustomerEmail, in.IssueDescription, in.Priority)
	if err != nil {
		return nil, err
	}
	ticket, err := h.svc.Tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":   true,
		"ticket_id": ticketID,
		"ticket":    ticket,
		"message":   fmt.Sprintf("Support ticket #%d created with %s priority", ticketID, ticket.Priority),
	}, nil
}

type initiateReturnArgs struct {
	OrderID      int    `json:"order_id" jsonschema:"description=The order ID to return"`
	ReturnReason string `json:"return_reason" jsonschema:"description=Reason for the return (e.g. defective or wrong item or changed mind)"`
	ProductIDs   []int  `json:"product_ids,omitempty" jsonschema:"description=REQUIRED for partial returns: list of specific product IDs to return. MUST be provided when the customer wants to return only some items from a multi-item order."`
	Quantities   []int  `json:"quantities,omitempty" jsonschema:"description=REQUIRED for partial returns: quantities for each product being returned (must match length of product_ids)."`
}

func (h *handlers) initiateReturn(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in initiateReturnArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	order, err := h.svc.Orders.GetOrderWithProductNames(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return failure(fmt.Sprintf("Order #%d not found", in.OrderID)), nil
		}
		return nil, err
	}

	if len(in.ProductIDs) > 0 && len(in.Quantities) > 0 {
		if len(in.ProductIDs) != len(in.Quantities) {
			return failure("Number of products and quantities must match"), nil
		}
		itemsByProduct := make(map[int]core.OrderItem, len(order.Items))
		for _, item := range order.Items {
			itemsByProduct[item.ProductID] = item
		}
		for i, productID := range in.ProductIDs {
			item, ok := itemsByProduct[productID]
			if !ok {
				return failure(fmt.Sprintf("Product ID %d was not in order #%d", productID, in.OrderID)), nil
			}
			if in.Quantities[i] > item.Quantity {
				return failure(fmt.Sprintf("Cannot return %d units of %s. Order only contained %d units.",
					in.Quantities[i], item.ProductName, item.Quantity)), nil
			}
		}
	} else if len(in.ProductIDs) > 0 || len(in.Quantities) > 0 {
		return failure("Both product_ids and quantities must be provided together, or neither"), nil
	}

	returnID, err := h.svc.Returns.CreateReturn(ctx, in.OrderID, in.ReturnReason, in.ProductIDs, in.Quantities)
	if err != nil {
		return nil, err
	}
	returnInfo, err := h.svc.Returns.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	returnedItems := make([]string, len(returnInfo.Items))
	for i, item := range returnInfo.Items {
		returnedItems[i] = fmt.Sprintf("%dx Product %d", item.Quantity, item.ProductID)
	}
	itemsText := strings.Join(returnedItems, ", ")

	var message string
	var returned any
	if len(in.ProductIDs) > 0 {
		returned = in.ProductIDs
		message = fmt.Sprintf("Return request #%d created for %s from order #%d. Refund amount: $%s",
			returnID, itemsText, in.OrderID, returnInfo.RefundTotal.StringFixed(2))
	} else {
		returned = "all items"
		message = fmt.Sprintf("Return request #%d created for entire order #%d (%s). Refund amount: $%s",
			returnID, in.OrderID, itemsText, returnInfo.RefundTotal.StringFixed(2))
	}

	return map[string]any{
		"success":        true,
		"return_id":      returnID,
		"order_id":       in.OrderID,
		"return_info":    returnInfo,
		"returned_items": returned,
		"message":        message,
	}, nil
}

type searchKnowledgeBaseArgs struct {
	Query string `json:"query" jsonschema:"description=Search query describing what information is needed"`
}

func (h *handlers) searchKnowledgeBase(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var in searchKnowledgeBaseArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if h.svc.KB == nil {
		return nil, fmt.Errorf("knowledge base is not available")
	}

	results, err := h.svc.KB.SearchByText(ctx, in.Query, kb.SearchOptions{Limit: kb.DefaultSearchLimit})
	if err != nil {
		return nil, err
	}

	articles := make([]map[string]any, 0, len(results))
	for _, doc := range results {
		title := doc.Title
		if title == "" {
			title = "Untitled"
		}
		category, _ := doc.Payload["category"].(string)
		url, _ := doc.Payload["url"].(string)
		articles = append(articles, map[string]any{
			"title":           title,
			"content":         doc.Content,
			"category":        category,
			"relevance_score": doc.Score,
			"url":             url,
		})
	}

	return map[string]any{
		"success":  true,
		"query":    in.Query,
		"count":    len(articles),
		"articles": articles,
		"message":  fmt.Sprintf("Found %d relevant article(s)", len(articles)),
	}, nil
}
