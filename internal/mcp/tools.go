package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"orderdesk/internal/models"
	"orderdesk/internal/service"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
)

func registerTools(s *server.MCPServer, svc Services) {
	s.AddTool(
		mcplib.NewTool("get_menu",
			mcplib.WithDescription("Returns the public menu of a restaurant: categories with their available products and prices"),
			mcplib.WithString("restaurant", mcplib.Required(), mcplib.Description("Restaurant slug")),
		),
		handleGetMenu(svc),
	)

	s.AddTool(
		mcplib.NewTool("get_order",
			mcplib.WithDescription("Returns one order with its items, total and allowed next statuses. Look up by order_id within a restaurant, or by tracking token"),
			mcplib.WithString("restaurant", mcplib.Description("Restaurant slug, required with order_id")),
			mcplib.WithNumber("order_id", mcplib.Description("Order id")),
			mcplib.WithString("token", mcplib.Description("Customer tracking token")),
		),
		handleGetOrder(svc),
	)

	s.AddTool(
		mcplib.NewTool("list_orders",
			mcplib.WithDescription("Lists a restaurant's orders, newest first"),
			mcplib.WithString("restaurant", mcplib.Required(), mcplib.Description("Restaurant slug")),
			mcplib.WithString("status", mcplib.Description("Only orders in this status: pending, confirmed, preparing, ready, delivered or cancelled")),
			mcplib.WithNumber("limit", mcplib.Description("Maximum number of orders (default 100)")),
		),
		handleListOrders(svc),
	)

	s.AddTool(
		mcplib.NewTool("transition_order",
			mcplib.WithDescription("Moves an order to a new status. Only transitions allowed by the order lifecycle are applied"),
			mcplib.WithString("restaurant", mcplib.Required(), mcplib.Description("Restaurant slug")),
			mcplib.WithNumber("order_id", mcplib.Required(), mcplib.Description("Order id")),
			mcplib.WithString("status", mcplib.Required(), mcplib.Description("Target status")),
		),
		handleTransitionOrder(svc),
	)

	s.AddTool(
		mcplib.NewTool("sweep_stale_orders",
			mcplib.WithDescription("Cancels orders that stayed pending past the configured TTL and reports what happened"),
		),
		handleSweep(svc),
	)
}

func handleGetMenu(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		slug, err := request.RequireString("restaurant")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		menu, err := svc.Menu.GetMenu(ctx, slug)
		if err != nil {
			return serviceError(err), nil
		}
		return jsonResult(menu)
	}
}

func handleGetOrder(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		args := request.GetArguments()

		if token, _ := args["token"].(string); token != "" {
			order, err := svc.Orders.GetOrderByToken(ctx, token)
			if err != nil {
				return serviceError(err), nil
			}
			return jsonResult(order)
		}

		slug, _ := args["restaurant"].(string)
		id, err := orderID(args)
		if err != nil || slug == "" {
			return errorResult("either token, or restaurant and order_id, are required"), nil
		}

		order, err := svc.Orders.GetOrder(ctx, slug, id)
		if err != nil {
			return serviceError(err), nil
		}
		return jsonResult(order)
	}
}

func handleListOrders(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		slug, err := request.RequireString("restaurant")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		args := request.GetArguments()
		var filters models.OrderFilters
		if raw, _ := args["status"].(string); raw != "" {
			status, err := models.ParseStatus(raw)
			if err != nil {
				return serviceError(err), nil
			}
			filters.Status = status
		}
		if raw, ok := args["limit"]; ok {
			limit, err := cast.ToIntE(raw)
			if err != nil || limit < 0 {
				return errorResult("limit must be a positive number"), nil
			}
			filters.Limit = limit
		}

		orders, err := svc.Orders.ListOrders(ctx, slug, filters)
		if err != nil {
			return serviceError(err), nil
		}
		if orders == nil {
			orders = []*models.Order{}
		}
		return jsonResult(orders)
	}
}

func handleTransitionOrder(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		slug, err := request.RequireString("restaurant")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		status, err := request.RequireString("status")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		id, err := orderID(request.GetArguments())
		if err != nil {
			return errorResult(err.Error()), nil
		}

		order, err := svc.Orders.TransitionOrder(ctx, slug, id, status, service.ReasonStaff)
		if err != nil {
			return serviceError(err), nil
		}
		return jsonResult(order)
	}
}

func handleSweep(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		result, err := svc.Reaper.Sweep(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("sweep failed: %v", err)), nil
		}
		return jsonResult(result)
	}
}

func orderID(args map[string]interface{}) (int64, error) {
	raw, ok := args["order_id"]
	if !ok {
		return 0, fmt.Errorf("required argument \"order_id\" not found")
	}
	id, err := cast.ToInt64E(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("order_id must be a positive integer")
	}
	return id, nil
}

// serviceError reports business errors with their kind. Anything else is reported
// without internal detail.
func serviceError(err error) *mcplib.CallToolResult {
	kind := models.KindOf(err)
	if kind == "" {
		return errorResult("internal error")
	}
	return errorResult(fmt.Sprintf("%s: %s", kind, err.Error()))
}

func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
