package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services. Object fields
// resolve through the json tags of the domain structs.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"weight":      &graphql.Field{Type: graphql.Float},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"authorization": &graphql.Field{Type: graphql.String},
			"status":        &graphql.Field{Type: graphql.String},
			"message":       &graphql.Field{Type: graphql.String},
			"position":      &graphql.Field{Type: geoPointType},
			"fixed_at":      &graphql.Field{Type: graphql.DateTime},
			"failure":       &graphql.Field{Type: graphql.String},
		},
	})

	stateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "State",
		Fields: graphql.Fields{
			"location":   &graphql.Field{Type: locationType},
			"selected":   &graphql.Field{Type: pointType},
			"message":    &graphql.Field{Type: graphql.String},
			"candidates": &graphql.Field{Type: graphql.Int},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	selectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Selection",
		Fields: graphql.Fields{
			"point":       &graphql.Field{Type: pointType},
			"origin":      &graphql.Field{Type: geoPointType},
			"candidates":  &graphql.Field{Type: graphql.NewList(pointType)},
			"draw":        &graphql.Field{Type: graphql.Float},
			"selected_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	addResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AddLocationResult",
		Fields: graphql.Fields{
			"point":   &graphql.Field{Type: pointType},
			"message": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"candidates": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "All candidate destinations in insertion order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Destinations.ListCandidates(p.Context)
				},
			},
			"weights": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Candidates weighted against the current position",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					points, _, err := deps.Destinations.Weights(p.Context)
					return points, err
				},
			},
			"state": &graphql.Field{
				Type:        stateType,
				Description: "Current application state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.State.View(), nil
				},
			},
			"location": &graphql.Field{
				Type:        locationType,
				Description: "Location status and last fix",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Location.Snapshot(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addLocation": &graphql.Field{
				Type:        addResultType,
				Description: "Add a candidate from raw name, latitude and longitude text",
				Args: graphql.FieldConfigArgument{
					"name":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, msg, err := deps.Destinations.AddLocation(p.Context,
						p.Args["name"].(string), p.Args["latitude"].(string), p.Args["longitude"].(string))
					if errors.Is(err, domain.ErrValidation) {
						return map[string]interface{}{"point": nil, "message": msg}, nil
					}
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"point": pt, "message": msg}, nil
				},
			},
			"requestSelection": &graphql.Field{
				Type:        selectionType,
				Description: "Draw the next destination",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Destinations.RequestSelection(p.Context)
				},
			},
			"authorizeLocation": &graphql.Field{
				Type:        locationType,
				Description: "Apply a location permission decision",
				Args: graphql.FieldConfigArgument{
					"decision": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Location.Authorize(p.Context, p.Args["decision"].(string))
				},
			},
			"reportFix": &graphql.Field{
				Type:        locationType,
				Description: "Record a location fix",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Location.ReportFix(p.Context, pt, time.Time{})
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
		// Programming error in the schema definition.
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
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
