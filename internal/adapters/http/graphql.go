package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// timestamp resolves a time.Time struct field as RFC 3339.
func timestamp(get func(domain.Address) time.Time) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		var a domain.Address
		switch v := p.Source.(type) {
		case domain.Address:
			a = v
		case *domain.Address:
			a = *v
		default:
			return nil, nil
		}
		t := get(a)
		if t.IsZero() {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339), nil
	}
}

// stringList converts a [String] argument.
func stringList(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// buildSchema creates the GraphQL schema wired to our services.
// Field names follow the JSON tags so the default resolver applies.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	addressType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Address",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"street":     &graphql.Field{Type: graphql.String},
			"city":       &graphql.Field{Type: graphql.String},
			"state":      &graphql.Field{Type: graphql.String},
			"zip_code":   &graphql.Field{Type: graphql.String},
			"country":    &graphql.Field{Type: graphql.String},
			"latitude":   &graphql.Field{Type: graphql.Float},
			"longitude":  &graphql.Field{Type: graphql.Float},
			"notes":      &graphql.Field{Type: graphql.String},
			"created_at": &graphql.Field{Type: graphql.String, Resolve: timestamp(func(a domain.Address) time.Time { return a.CreatedAt })},
			"updated_at": &graphql.Field{Type: graphql.String, Resolve: timestamp(func(a domain.Address) time.Time { return a.UpdatedAt })},
		},
	})

	rankedType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RankedAddress",
		Fields: graphql.Fields{
			"address":  &graphql.Field{Type: addressType},
			"distance": &graphql.Field{Type: graphql.Float, Description: "Meters from the origin"},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteLeg",
		Fields: graphql.Fields{
			"address":  &graphql.Field{Type: addressType},
			"distance": &graphql.Field{Type: graphql.Float, Description: "Meters from the previous stop"},
			"duration": &graphql.Field{Type: graphql.Float, Description: "Seconds from the previous stop"},
			"order":    &graphql.Field{Type: graphql.Int},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"origin":           &graphql.Field{Type: geoPointType},
			"route":            &graphql.Field{Type: graphql.NewList(legType)},
			"total_distance":   &graphql.Field{Type: graphql.Float},
			"total_duration":   &graphql.Field{Type: graphql.Float},
			"initial_distance": &graphql.Field{Type: graphql.Float},
			"passes":           &graphql.Field{Type: graphql.Int},
			"improvements":     &graphql.Field{Type: graphql.Int},
			"budget_exhausted": &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"addresses": &graphql.Field{
				Type:        graphql.NewList(addressType),
				Description: "One page of the address catalog, ordered by name",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageSize},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items, _, err := deps.Addresses.Page(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return items, err
				},
			},
			"address": &graphql.Field{
				Type:        addressType,
				Description: "Get an address by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return deps.Addresses.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"nearest": &graphql.Field{
				Type:        graphql.NewList(rankedType),
				Description: "Addresses closest to a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					origin := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					limit, ok := p.Args["limit"].(int)
					if !ok {
						limit = deps.Routes.DefaultStops()
					}
					return deps.Routes.Nearest(p.Context, origin, limit)
				},
			},
			"optimizeRoute": &graphql.Field{
				Type:        routeType,
				Description: "Order the given addresses into a short route from a start point",
				Args: graphql.FieldConfigArgument{
					"lat":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"addressIds": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					origin := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Routes.Optimize(p.Context, origin, stringList(p.Args["addressIds"]))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createAddress": &graphql.Field{
				Type: addressType,
				Args: graphql.FieldConfigArgument{
					"name":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"street":    &graphql.ArgumentConfig{Type: graphql.String},
					"city":      &graphql.ArgumentConfig{Type: graphql.String},
					"state":     &graphql.ArgumentConfig{Type: graphql.String},
					"zip_code":  &graphql.ArgumentConfig{Type: graphql.String},
					"country":   &graphql.ArgumentConfig{Type: graphql.String},
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"notes":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					str := func(k string) string {
						s, _ := p.Args[k].(string)
						return s
					}
					a := &domain.Address{
						Name:      str("name"),
						Street:    str("street"),
						City:      str("city"),
						State:     str("state"),
						ZipCode:   str("zip_code"),
						Country:   str("country"),
						Latitude:  p.Args["latitude"].(float64),
						Longitude: p.Args["longitude"].(float64),
						Notes:     str("notes"),
					}
					if err := deps.Addresses.Create(p.Context, a); err != nil {
						return nil, err
					}
					return a, nil
				},
			},
			"deleteAddress": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if err := deps.Addresses.Delete(p.Context, p.Args["id"].(string)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
