package chatserver

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Catalog holds every user-visible text the coordinator sends.
type Catalog struct {
	Errors  ErrorTexts  `yaml:"errors"`
	Notices NoticeTexts `yaml:"notices"`
}

// ErrorTexts are the reasons reported for validation failures.
type ErrorTexts struct {
	EmptyName       string `yaml:"empty_name"`
	NameTooLong     string `yaml:"name_too_long"`
	DuplicateName   string `yaml:"duplicate_name"`
	EmptyTitle      string `yaml:"empty_title"`
	TitleTooLong    string `yaml:"title_too_long"`
	PasswordTooLong string `yaml:"password_too_long"`
	AlreadyInRoom   string `yaml:"already_in_room"`
	RoomNotFound    string `yaml:"room_not_found"`
	WrongPassword   string `yaml:"wrong_password"`
}

// NoticeTexts are room system notices. Placeholders: {name}, {old}, {new}.
type NoticeTexts struct {
	Renamed string `yaml:"renamed"`
	Welcome string `yaml:"welcome"`
	Left    string `yaml:"left"`
}

// DefaultCatalog returns the embedded English catalog.
//
// Postcondition: Returns a valid Catalog.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultCatalogYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog override from path. Keys absent from the file
// keep their default text. An empty path returns the default catalog.
//
// Postcondition: Returns a validated Catalog or a non-nil error.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", path, err)
	}
	return LoadCatalogFromBytes(data)
}

// LoadCatalogFromBytes parses a catalog override layered over the default.
//
// Postcondition: Returns a validated Catalog or a non-nil error.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	return parseCatalog(data, DefaultCatalog())
}

func parseCatalog(data []byte, base *Catalog) (*Catalog, error) {
	var c Catalog
	if base != nil {
		c = *base
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return &c, nil
}

// Validate rejects catalogs with empty entries.
func (c *Catalog) Validate() error {
	entries := map[string]string{
		"errors.empty_name":        c.Errors.EmptyName,
		"errors.name_too_long":     c.Errors.NameTooLong,
		"errors.duplicate_name":    c.Errors.DuplicateName,
		"errors.empty_title":       c.Errors.EmptyTitle,
		"errors.title_too_long":    c.Errors.TitleTooLong,
		"errors.password_too_long": c.Errors.PasswordTooLong,
		"errors.already_in_room":   c.Errors.AlreadyInRoom,
		"errors.room_not_found":    c.Errors.RoomNotFound,
		"errors.wrong_password":    c.Errors.WrongPassword,
		"notices.renamed":          c.Notices.Renamed,
		"notices.welcome":          c.Notices.Welcome,
		"notices.left":             c.Notices.Left,
	}
	var errs []error
	for key, text := range entries {
		if strings.TrimSpace(text) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", key))
		}
	}
	return errors.Join(errs...)
}

// Reason returns the text reported for a taxonomy error, or err.Error() for
// anything else.
func (c *Catalog) Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyName):
		return c.Errors.EmptyName
	case errors.Is(err, ErrNameTooLong):
		return c.Errors.NameTooLong
	case errors.Is(err, ErrDuplicateName):
		return c.Errors.DuplicateName
	case errors.Is(err, ErrEmptyTitle):
		return c.Errors.EmptyTitle
	case errors.Is(err, ErrTitleTooLong):
		return c.Errors.TitleTooLong
	case errors.Is(err, ErrPasswordTooLong):
		return c.Errors.PasswordTooLong
	case errors.Is(err, ErrAlreadyInRoom):
		return c.Errors.AlreadyInRoom
	case errors.Is(err, ErrRoomNotFound):
		return c.Errors.RoomNotFound
	case errors.Is(err, ErrWrongPassword):
		return c.Errors.WrongPassword
	}
	return err.Error()
}

// Renamed formats the rename notice.
func (c *Catalog) Renamed(oldName, newName string) string {
	return strings.NewReplacer("{old}", oldName, "{new}", newName).Replace(c.Notices.Renamed)
}

// Welcome formats the join notice.
func (c *Catalog) Welcome(name string) string {
	return strings.ReplaceAll(c.Notices.Welcome, "{name}", name)
}

// Left formats the leave notice.
func (c *Catalog) Left(name string) string {
	return strings.ReplaceAll(c.Notices.Left, "{name}", name)
}
