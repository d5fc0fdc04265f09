// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"encoding/xml"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/devblok/phong/util/collada"
)

// ErrNoGeometry is returned for documents without any triangle geometry
var ErrNoGeometry = errors.New("collada: no triangle geometry")

// ImportCollada reads given file and converts every Collada geometry
// to a Mesh. Normals and texture coordinates are taken when present,
// tangents are always generated.
func ImportCollada(fileContents []byte) ([]Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(fileContents, &doc); err != nil {
		return nil, errors.Wrap(err, "collada")
	}

	var meshes []Mesh
	for _, g := range doc.Geometries {
		if len(g.Mesh.Triangles.Index) == 0 {
			continue
		}
		vertices, err := triangleVertices(g.Mesh)
		if err != nil {
			return nil, errors.Wrapf(err, "collada: geometry %s", g.ID)
		}
		GenerateTangents(vertices)
		name := g.Name
		if name == "" {
			name = g.ID
		}
		meshes = append(meshes, Mesh{Name: name, Vertices: vertices})
	}
	if len(meshes) == 0 {
		return nil, ErrNoGeometry
	}
	return meshes, nil
}

type boundInput struct {
	source collada.Source
	offset int
}

func triangleVertices(mesh collada.Mesh) ([]Vertex, error) {
	tri := mesh.Triangles
	stride := tri.Stride()
	if stride == 0 {
		return nil, errors.New("triangles without inputs")
	}
	if len(tri.Index)%(3*stride) != 0 {
		return nil, errors.Errorf("index count %d is not a whole number of triangles", len(tri.Index))
	}

	inputs := make(map[string]boundInput)
	for _, in := range tri.Inputs {
		if _, seen := inputs[in.Semantic]; seen {
			// only the first texture coordinate set is used
			continue
		}
		src, ok := mesh.SourceOf(in)
		if !ok {
			return nil, errors.Errorf("unresolved source %s", in.Source)
		}
		inputs[in.Semantic] = boundInput{source: src, offset: int(in.Offset)}
	}
	position, ok := inputs[collada.SemanticVertex]
	if !ok {
		return nil, errors.New("no VERTEX input")
	}
	normal, hasNormal := inputs[collada.SemanticNormal]
	texCoord, hasTexCoord := inputs[collada.SemanticTexCoord]

	corners := len(tri.Index) / stride
	vertices := make([]Vertex, corners)
	for i := range vertices {
		p := tri.Index[i*stride : (i+1)*stride]

		pos, ok := position.source.Element(p[position.offset])
		if !ok || len(pos) < 3 {
			return nil, errors.Errorf("position %d out of range", p[position.offset])
		}
		vertices[i].Position = glm.Vec3{pos[0], pos[1], pos[2]}

		if hasNormal {
			n, ok := normal.source.Element(p[normal.offset])
			if !ok || len(n) < 3 {
				return nil, errors.Errorf("normal %d out of range", p[normal.offset])
			}
			vertices[i].Normal = glm.Vec3{n[0], n[1], n[2]}
		}
		if hasTexCoord {
			uv, ok := texCoord.source.Element(p[texCoord.offset])
			if !ok || len(uv) < 2 {
				return nil, errors.Errorf("texcoord %d out of range", p[texCoord.offset])
			}
			// Collada puts the origin bottom left, Vulkan top left
			vertices[i].TexCoord = glm.Vec2{uv[0], 1 - uv[1]}
		}
	}

	if !hasNormal {
		for i := 0; i+2 < len(vertices); i += 3 {
			e1 := vertices[i+1].Position.Sub(vertices[i].Position)
			e2 := vertices[i+2].Position.Sub(vertices[i].Position)
			n := e1.Cross(e2)
			if n.Len() > 0 {
				n = n.Normalize()
			}
			vertices[i].Normal, vertices[i+1].Normal, vertices[i+2].Normal = n, n, n
		}
	}
	return vertices, nil
}
