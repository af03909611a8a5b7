// Package graphql defines the read-only catalog schema served on /graphql.
package graphql

import (
	"errors"

	gql "github.com/graphql-go/graphql"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	pkggraphql "github.com/usgears/storefront/pkg/graphql"
)

var productType = gql.NewObject(gql.ObjectConfig{
	Name: "Product",
	Fields: gql.Fields{
		"id": &gql.Field{
			Type: gql.NewNonNull(gql.ID),
			Resolve: func(p gql.ResolveParams) (any, error) {
				return p.Source.(models.Product).ID.Hex(), nil
			},
		},
		"name":             &gql.Field{Type: gql.String},
		"category":         &gql.Field{Type: gql.String},
		"price":            &gql.Field{Type: gql.Float},
		"stock":            &gql.Field{Type: gql.Int},
		"description":      &gql.Field{Type: gql.String},
		"specifications":   &gql.Field{Type: gql.NewList(gql.String)},
		"inStock":          &gql.Field{Type: gql.Boolean},
		"image":            &gql.Field{Type: gql.String},
		"additionalImages": &gql.Field{Type: gql.NewList(gql.String)},
		"createdAt":        &gql.Field{Type: gql.DateTime},
		"updatedAt":        &gql.Field{Type: gql.DateTime},
	},
})

// CatalogSchema exposes products(category, inStock) and product(id).
func CatalogSchema(catalog *services.CatalogService) (gql.Schema, error) {
	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"products": &gql.Field{
				Type: gql.NewList(productType),
				Args: gql.FieldConfigArgument{
					"category": &gql.ArgumentConfig{Type: gql.String},
					"inStock":  &gql.ArgumentConfig{Type: gql.Boolean},
				},
				Resolve: func(p gql.ResolveParams) (any, error) {
					var f services.ProductFilter
					if c, ok := p.Args["category"].(string); ok {
						f.Category = c
					}
					if b, ok := p.Args["inStock"].(bool); ok {
						f.InStock = &b
					}
					page, err := catalog.List(p.Context, f, nil)
					if err != nil {
						return nil, err
					}
					return page.Items, nil
				},
			},
			"product": &gql.Field{
				Type: productType,
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
				},
				Resolve: func(p gql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					prod, err := catalog.Find(p.Context, id)
					switch {
					case errors.Is(err, services.ErrInvalidID):
						return nil, errors.New("Invalid product ID")
					case errors.Is(err, services.ErrNotFound):
						return nil, errors.New("Product not found")
					case err != nil:
						return nil, err
					}
					return *prod, nil
				},
			},
		},
	})
	return pkggraphql.NewSchema(query)
}
