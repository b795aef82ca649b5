package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fastpix01-lab/fruitamruth/internal/services"
)

// catalogFile is the YAML layout accepted by catalogseed.
//
//	categories:
//	  - name: Classic
//	products:
//	  - name: Mango Juice
//	    category: Classic
//	    price: "120"
//	    image: images/mango.jpg
type catalogFile struct {
	Categories []categorySeed `yaml:"categories"`
	Products   []productSeed  `yaml:"products"`
}

type categorySeed struct {
	Name string `yaml:"name"`
}

type productSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Price       string `yaml:"price"`
	Image       string `yaml:"image"`
}

type seedResult struct {
	CategoriesCreated int
	ProductsCreated   int
	Skipped           int
}

func parseCatalog(r io.Reader) (catalogFile, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return catalogFile{}, errors.New("catalog file is empty")
		}
		return catalogFile{}, fmt.Errorf("decode catalog: %w", err)
	}

	declared := make(map[string]struct{}, len(file.Categories))
	for i, c := range file.Categories {
		key := nameKey(c.Name)
		if key == "" {
			return catalogFile{}, fmt.Errorf("categories[%d]: name is required", i)
		}
		if _, dup := declared[key]; dup {
			return catalogFile{}, fmt.Errorf("categories[%d]: duplicate category %q", i, c.Name)
		}
		declared[key] = struct{}{}
	}
	for i, p := range file.Products {
		if nameKey(p.Name) == "" {
			return catalogFile{}, fmt.Errorf("products[%d]: name is required", i)
		}
		if strings.TrimSpace(p.Price) == "" {
			return catalogFile{}, fmt.Errorf("products[%d]: price is required", i)
		}
		if p.Category != "" {
			if _, ok := declared[nameKey(p.Category)]; !ok {
				return catalogFile{}, fmt.Errorf("products[%d]: unknown category %q", i, p.Category)
			}
		}
	}
	return file, nil
}

// seeder creates the categories and products of a catalog file that do not exist yet.
// Existing records are matched by name, ignoring case, and left untouched.
type seeder struct {
	catalog services.CatalogService
	open    func(path string) (io.ReadCloser, error)
	baseDir string
	dryRun  bool
	logger  *zap.Logger
}

func newSeeder(catalog services.CatalogService, baseDir string, dryRun bool, logger *zap.Logger) *seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &seeder{
		catalog: catalog,
		open:    func(path string) (io.ReadCloser, error) { return os.Open(path) },
		baseDir: baseDir,
		dryRun:  dryRun,
		logger:  logger,
	}
}

func (s *seeder) Run(ctx context.Context, file catalogFile) (seedResult, error) {
	var result seedResult

	existing, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return result, fmt.Errorf("list categories: %w", err)
	}
	categoryIDs := make(map[string]string, len(existing))
	for _, c := range existing {
		categoryIDs[nameKey(c.Name)] = c.ID
	}

	for _, c := range file.Categories {
		key := nameKey(c.Name)
		if _, ok := categoryIDs[key]; ok {
			result.Skipped++
			continue
		}
		if s.dryRun {
			s.logger.Info("would create category", zap.String("name", c.Name))
			categoryIDs[key] = ""
			result.CategoriesCreated++
			continue
		}
		created, err := s.catalog.CreateCategory(ctx, c.Name)
		if err != nil {
			return result, fmt.Errorf("create category %q: %w", c.Name, err)
		}
		categoryIDs[key] = created.ID
		result.CategoriesCreated++
		s.logger.Info("category created", zap.String("id", created.ID), zap.String("name", created.Name))
	}

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return result, fmt.Errorf("list products: %w", err)
	}
	productNames := make(map[string]struct{}, len(products))
	for _, p := range products {
		productNames[nameKey(p.Name)] = struct{}{}
	}

	for _, p := range file.Products {
		if _, ok := productNames[nameKey(p.Name)]; ok {
			result.Skipped++
			continue
		}
		if s.dryRun {
			s.logger.Info("would create product", zap.String("name", p.Name), zap.String("category", p.Category))
			result.ProductsCreated++
			continue
		}
		if err := s.createProduct(ctx, p, categoryIDs[nameKey(p.Category)]); err != nil {
			return result, err
		}
		productNames[nameKey(p.Name)] = struct{}{}
		result.ProductsCreated++
	}
	return result, nil
}

func (s *seeder) createProduct(ctx context.Context, p productSeed, categoryID string) error {
	input := services.ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		CategoryID:  categoryID,
	}
	if p.Image != "" {
		path := p.Image
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.baseDir, path)
		}
		body, err := s.open(path)
		if err != nil {
			return fmt.Errorf("open image for %q: %w", p.Name, err)
		}
		defer body.Close()
		input.Image = &services.ImageUpload{
			FileName:    filepath.Base(path),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Body:        body,
		}
	}

	created, err := s.catalog.CreateProduct(ctx, input)
	if err != nil {
		var inputErr *services.InputError
		if errors.As(err, &inputErr) {
			return fmt.Errorf("product %q: %s", p.Name, inputErr.Message)
		}
		return fmt.Errorf("create product %q: %w", p.Name, err)
	}
	s.logger.Info("product created",
		zap.String("id", created.ID),
		zap.String("name", created.Name),
		zap.String("price", created.Price.StringFixed(2)),
	)
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
