package handlers

import (
	"pickhub/internal/catalog"

	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

// ListProducts filters the catalog by main/sub category and free-text query.
func (d Deps) ListProducts(c *fiber.Ctx) error {
	ix := d.Catalog.Current()
	products := ix.Find(catalog.Filter{
		MainCategory: c.Query("main_category"),
		Subcategory:  c.Query("subcategory"),
		Query:        c.Query("q"),
	})
	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

func (d Deps) Categories(c *fiber.Ctx) error {
	return c.JSON(d.Catalog.Current().Categories())
}

// ReloadCatalog re-reads the products file and swaps the index in atomically.
// Admin only.
func (d Deps) ReloadCatalog(c *fiber.Ctx) error {
	n, err := d.Catalog.Reload()
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "catalog.reload", fiber.Map{"products": n})
	return c.JSON(fiber.Map{"products": n})
}
